package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Cheertaboi/esim-catalog-service/internal/models"
	"github.com/Cheertaboi/esim-catalog-service/internal/service"
)

func newBundlesCmd(o *options) *cobra.Command {
	var (
		bundleType   string
		query        string
		page         int
		pageSize     int
		serverFilter bool
	)
	c := &cobra.Command{
		Use:   "bundles",
		Short: "List normalized bundles",
		RunE: func(cmd *cobra.Command, args []string) error {
			t := models.ParseBundleType(bundleType)
			if bundleType != "" && t == "" {
				return fmt.Errorf("unknown bundle type %q; use local, regional or global", bundleType)
			}
			res, err := o.app.Catalog.ListBundles(cmd.Context(), service.BundleFilter{
				Type:       t,
				Query:      query,
				ServerSide: serverFilter,
				Page:       page,
				PageSize:   pageSize,
			})
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ID\tTYPE\tCOUNTRY\tDATA\tVALIDITY\tPRICE\tPER GB")
				for _, b := range res.Items {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
						b.ID, b.Type, b.PrimaryCountryISO, b.DataDisplay, b.ValidityDisplay, b.Price.StringFixed(2), perGB(b.PricePerGB))
				}
				footer(tw, res.Page.Page, res.TotalPages, res.TotalItems, res.Stale, res.Message)
			})
		},
	}
	c.Flags().StringVarP(&bundleType, "type", "t", "", "bundle type (local, regional, global)")
	c.Flags().StringVarP(&query, "query", "q", "", "free-text search")
	c.Flags().IntVarP(&page, "page", "p", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 0, "page size (default PAGE_SIZE)")
	c.Flags().BoolVar(&serverFilter, "server-filter", false, "let the backend apply the type filter")
	return c
}

func newCountriesCmd(o *options) *cobra.Command {
	var (
		bundleType string
		query      string
		sortBy     string
		page       int
		pageSize   int
	)
	c := &cobra.Command{
		Use:   "countries [iso]",
		Short: "List countries with their cheapest price per GB, or show one country",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				agg, stale, err := o.app.Catalog.GetCountry(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return o.print(cmd.OutOrStdout(), agg, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "%s %s (%s)\t%s\n", agg.Flag, agg.CountryName, agg.CountryISO, agg.Region)
					fmt.Fprintln(tw, "ID\tDATA\tVALIDITY\tPRICE\tPER GB")
					for _, b := range agg.Bundles {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.DataDisplay, b.ValidityDisplay, b.Price.StringFixed(2), perGB(b.PricePerGB))
					}
					if stale {
						fmt.Fprintln(tw, "(stale snapshot)")
					}
				})
			}

			t := models.ParseBundleType(bundleType)
			if bundleType != "" && t == "" {
				return fmt.Errorf("unknown bundle type %q; use local, regional or global", bundleType)
			}
			res, err := o.app.Catalog.ListCountries(cmd.Context(), service.CountryFilter{
				Type:     t,
				Query:    query,
				Sort:     strings.ToLower(sortBy),
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "ISO\tCOUNTRY\tREGION\tBUNDLES\tFROM PER GB")
				for _, c := range res.Items {
					fmt.Fprintf(tw, "%s\t%s %s\t%s\t%d\t%s\n", c.CountryISO, c.Flag, c.CountryName, c.Region, c.BundleCount, perGB(c.MinPricePerGB))
				}
				footer(tw, res.Page.Page, res.TotalPages, res.TotalItems, res.Stale, res.Message)
			})
		},
	}
	c.Flags().StringVarP(&bundleType, "type", "t", "", "only count bundles of this type")
	c.Flags().StringVarP(&query, "query", "q", "", "free-text search")
	c.Flags().StringVarP(&sortBy, "sort", "s", "name", "sort order (name, price)")
	c.Flags().IntVarP(&page, "page", "p", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 0, "page size (default PAGE_SIZE)")
	return c
}

func newRegionsCmd(o *options) *cobra.Command {
	var (
		region   string
		query    string
		sortBy   string
		page     int
		pageSize int
	)
	c := &cobra.Command{
		Use:   "regions",
		Short: "List regions with covered countries",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := o.app.Catalog.ListRegions(cmd.Context(), service.RegionFilter{
				Region:   region,
				Query:    query,
				Sort:     strings.ToLower(sortBy),
				Page:     page,
				PageSize: pageSize,
			})
			if err != nil {
				return err
			}
			return o.print(cmd.OutOrStdout(), res, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "REGION\tCOUNTRIES\tBUNDLES\tFROM PER GB\tSAMPLE")
				for _, r := range res.Items {
					sample := make([]string, 0, len(r.SampleCountries))
					for _, c := range r.SampleCountries {
						sample = append(sample, c.Name)
					}
					fmt.Fprintf(tw, "%s\t%d\t%d\t%s\t%s\n", r.Region, r.CountryCount, r.BundleCount, perGB(r.MinPricePerGB), strings.Join(sample, ", "))
				}
				footer(tw, res.Page.Page, res.TotalPages, res.TotalItems, res.Stale, res.Message)
			})
		},
	}
	c.Flags().StringVarP(&region, "region", "r", "", "storefront region label, e.g. Americas")
	c.Flags().StringVarP(&query, "query", "q", "", "free-text search")
	c.Flags().StringVarP(&sortBy, "sort", "s", "name", "sort order (name, price)")
	c.Flags().IntVarP(&page, "page", "p", 1, "page number")
	c.Flags().IntVar(&pageSize, "page-size", 0, "page size (default PAGE_SIZE)")
	return c
}

func perGB(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func footer(tw *tabwriter.Writer, page, totalPages, totalItems int, stale bool, message string) {
	if message != "" {
		fmt.Fprintln(tw, message)
	}
	suffix := ""
	if stale {
		suffix = " (stale snapshot)"
	}
	fmt.Fprintf(tw, "page %d of %d, %d items%s\n", page, totalPages, totalItems, suffix)
}
