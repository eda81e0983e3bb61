package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/esim-catalog-service/internal/apperror"
	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/pkg/metrics"
)

const esimUUID = "2bda1476-a32d-4ad2-8a11-b975b6437fc3"

type fakeOrders struct {
	orders   map[string]models.Order
	qr       map[string]models.QRPayload
	orderErr error

	orderCalls []string
	qrCalls    []string
}

func (f *fakeOrders) GetOrder(_ context.Context, id string) (*models.Order, error) {
	f.orderCalls = append(f.orderCalls, id)
	if f.orderErr != nil {
		return nil, f.orderErr
	}
	o, ok := f.orders[id]
	if !ok {
		return nil, apperror.Newf(apperror.TypeNotFound, "order %s not found", id)
	}
	return &o, nil
}

func (f *fakeOrders) GetQRCode(_ context.Context, esimID string) (*models.QRPayload, error) {
	f.qrCalls = append(f.qrCalls, esimID)
	p, ok := f.qr[esimID]
	if !ok {
		return nil, apperror.Newf(apperror.TypeNotFound, "esim %s not found", esimID)
	}
	return &p, nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func zipBytes(t *testing.T, files map[string][]byte, order ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(files[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func b64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

func TestResolve_EsimIDGoesStraightToQR(t *testing.T) {
	src := &fakeOrders{qr: map[string]models.QRPayload{esimUUID: {QRCode: b64(pngBytes(t))}}}
	r := NewEsimResolver(src, nil, nil)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{EsimID: esimUUID})
	require.NoError(t, err)

	assert.Empty(t, src.orderCalls, "no order lookup when the UUID is known")
	assert.Equal(t, []string{esimUUID}, src.qrCalls)
	assert.Equal(t, ResolvedByEsimID, res.ResolvedBy)
	assert.Equal(t, "image/png", res.ContentType)
	assert.True(t, strings.HasPrefix(res.QRImageDataURI, "data:image/png;base64,"))
	assert.Equal(t, "esimId="+esimUUID, res.CanonicalQuery)
}

func TestResolve_NonUUIDOrderLookupFailureIsUnresolved(t *testing.T) {
	src := &fakeOrders{orderErr: apperror.New(apperror.TypeFetch, "backend down")}
	r := NewEsimResolver(src, nil, nil)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{OrderID: "12345"})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, apperror.IsType(err, apperror.TypeUnresolvedIdentifier))
	assert.Empty(t, src.qrCalls)
}

func TestResolve_OrderRecordSuppliesUUID(t *testing.T) {
	src := &fakeOrders{
		orders: map[string]models.Order{"ORD-1": {ID: "ORD-1", EsimID: esimUUID, ICCID: "8944"}},
		qr:     map[string]models.QRPayload{esimUUID: {Alt: "data:image/png;base64," + b64(pngBytes(t))}},
	}
	r := NewEsimResolver(src, nil, nil)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{OrderID: "ORD-1"})
	require.NoError(t, err)
	assert.Equal(t, ResolvedByOrder, res.ResolvedBy)
	assert.Equal(t, esimUUID, res.Reference.EsimID)
	assert.Equal(t, "8944", res.Reference.ICCID)
	assert.Equal(t, "esimId="+esimUUID+"&iccid=8944&orderId=ORD-1", res.CanonicalQuery)
}

func TestResolve_UUIDShapedOrderIDFallback(t *testing.T) {
	src := &fakeOrders{
		orderErr: apperror.New(apperror.TypeFetch, "backend down"),
		qr:       map[string]models.QRPayload{esimUUID: {Data: b64(pngBytes(t))}},
	}
	r := NewEsimResolver(src, nil, nil)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{OrderID: esimUUID})
	require.NoError(t, err)
	assert.Equal(t, ResolvedByOrderID, res.ResolvedBy)
	assert.Equal(t, []string{esimUUID}, src.qrCalls)
}

func TestResolve_MatchingIDLastResort(t *testing.T) {
	src := &fakeOrders{qr: map[string]models.QRPayload{"LPA-MATCH": {QRCode: b64(pngBytes(t))}}}
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	r := NewEsimResolver(src, nil, m)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{MatchingID: " LPA-MATCH "})
	require.NoError(t, err)
	assert.Equal(t, ResolvedByMatchingID, res.ResolvedBy)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.QRResolutions.WithLabelValues("resolve", ResolvedByMatchingID)))
}

func TestResolve_NothingToResolve(t *testing.T) {
	r := NewEsimResolver(&fakeOrders{}, nil, nil)

	_, err := r.Resolve(context.Background(), models.EsimOrderReference{ICCID: "8944"})
	assert.True(t, apperror.IsType(err, apperror.TypeUnresolvedIdentifier))
}

func TestResolve_QRFetchErrorPropagates(t *testing.T) {
	r := NewEsimResolver(&fakeOrders{}, nil, nil)

	_, err := r.Resolve(context.Background(), models.EsimOrderReference{EsimID: esimUUID})
	assert.True(t, apperror.IsType(err, apperror.TypeNotFound))
}

func TestResolve_PackagedPayload(t *testing.T) {
	archive := zipBytes(t, map[string][]byte{
		"readme.txt": []byte("scan me"),
		"qr.png":     pngBytes(t),
	}, "readme.txt", "qr.png")
	src := &fakeOrders{qr: map[string]models.QRPayload{esimUUID: {QRCode: b64(archive)}}}
	r := NewEsimResolver(src, nil, nil)

	res, err := r.Resolve(context.Background(), models.EsimOrderReference{EsimID: esimUUID})
	require.NoError(t, err)
	assert.True(t, res.Packaged)
	assert.Equal(t, "image/png", res.ContentType)
}

func TestResolve_BrokenPayloadIsQRProcessingError(t *testing.T) {
	src := &fakeOrders{qr: map[string]models.QRPayload{esimUUID: {QRCode: b64([]byte("PK\x03\x04 not really a zip"))}}}
	r := NewEsimResolver(src, nil, nil)

	_, err := r.Resolve(context.Background(), models.EsimOrderReference{EsimID: esimUUID})
	assert.True(t, apperror.IsType(err, apperror.TypeQRProcessing))
}

func TestDecodeQRPayload(t *testing.T) {
	img := pngBytes(t)

	cases := []struct {
		name     string
		payload  string
		wantType apperror.Type
		packaged bool
	}{
		{name: "plain base64", payload: b64(img)},
		{name: "wrapped base64", payload: b64(img)[:10] + "\n" + b64(img)[10:]},
		{name: "data uri", payload: "data:image/png;base64," + b64(img)},
		{name: "svg data uri", payload: "data:image/svg+xml,%3Csvg%20xmlns%3D%22http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%22%2F%3E"},
		{name: "zip", payload: b64(zipBytes(t, map[string][]byte{"code.png": img}, "code.png")), packaged: true},
		{name: "empty", payload: "  ", wantType: apperror.TypeQRProcessing},
		{name: "not base64", payload: "%%%", wantType: apperror.TypeQRProcessing},
		{name: "not an image", payload: b64([]byte("hello world")), wantType: apperror.TypeQRProcessing},
		{name: "zip without image", payload: b64(zipBytes(t, map[string][]byte{"a.txt": []byte("x")}, "a.txt")), wantType: apperror.TypeQRProcessing},
		{name: "data uri without comma", payload: "data:image/png;base64", wantType: apperror.TypeQRProcessing},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeQRPayload(tc.payload)
			if tc.wantType != "" {
				require.Error(t, err)
				assert.Equal(t, tc.wantType, apperror.TypeOf(err))
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got.ContentType, "image/"))
			assert.Equal(t, tc.packaged, got.Packaged)
		})
	}
}

func TestLooksLikeUUID(t *testing.T) {
	assert.True(t, LooksLikeUUID(esimUUID))
	assert.False(t, LooksLikeUUID("12345"))
	assert.False(t, LooksLikeUUID(strings.Repeat("a", 36)))
}
