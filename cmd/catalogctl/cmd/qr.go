package cmd

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
)

func newQRCmd(o *options) *cobra.Command {
	var (
		ref models.EsimOrderReference
		out string
	)
	c := &cobra.Command{
		Use:   "qr",
		Short: "Resolve an eSIM and fetch its QR code",
		Long: `Resolve an eSIM UUID from whichever identifier you have and fetch its QR
code. The eSIM UUID is used directly; an order id is looked up first; a
matching id is tried last.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.app.Esim.Resolve(cmd.Context(), ref)
			if err != nil {
				return err
			}
			if out != "" {
				_, data, _ := strings.Cut(res.QRImageDataURI, ",")
				img, err := base64.StdEncoding.DecodeString(data)
				if err != nil {
					return fmt.Errorf("decode image: %w", err)
				}
				if err := os.WriteFile(out, img, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
			}
			return o.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "esimId\t%s\n", res.Reference.EsimID)
				fmt.Fprintf(tw, "resolvedBy\t%s\n", res.ResolvedBy)
				fmt.Fprintf(tw, "contentType\t%s\n", res.ContentType)
				fmt.Fprintf(tw, "packaged\t%t\n", res.Packaged)
				fmt.Fprintf(tw, "lookup\t?%s\n", res.CanonicalQuery)
				if out != "" {
					fmt.Fprintf(tw, "written\t%s\n", out)
				}
			})
		},
	}
	c.Flags().StringVar(&ref.EsimID, "esim-id", "", "eSIM UUID")
	c.Flags().StringVar(&ref.OrderID, "order-id", "", "order id")
	c.Flags().StringVar(&ref.MatchingID, "matching-id", "", "matching id")
	c.Flags().StringVar(&ref.ICCID, "iccid", "", "ICCID, for display only")
	c.Flags().StringVarP(&out, "out", "o", "", "write the QR image to this file")
	return c
}
