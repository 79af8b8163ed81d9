package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-finder/internal/model"
)

var (
	crawlLocation   string
	crawlRadiusKM   float64
	crawlKeyword    string
	crawlTypes      []string
	crawlHasWebsite string
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one crawl synchronously and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Google.APIKey == "" {
			return eris.New("crawl: google.api_key is not configured")
		}

		ctx := cmd.Context()
		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		mode, err := model.ParseInclusionMode(crawlHasWebsite)
		if err != nil {
			return err
		}

		req := model.CrawlRequest{
			Location: crawlLocation,
			RadiusKM: crawlRadiusKM,
			Keyword:  crawlKeyword,
			Types:    crawlTypes,
			Mode:     mode,
		}
		if req.Location == "" {
			req.Location = cfg.Crawl.DefaultLocation
		}
		if req.RadiusKM <= 0 {
			req.RadiusKM = cfg.Crawl.DefaultRadiusKM
		}
		if len(req.Types) == 0 {
			req.Types = cfg.Crawl.DefaultTypes
		}

		if _, err := e.Runner.Start(ctx, req); err != nil {
			return err
		}

		select {
		case <-e.Runner.Done():
		case <-ctx.Done():
			return ctx.Err()
		}

		results, _, err := e.Store.ReadAfter(ctx, 0)
		if err != nil {
			return err
		}

		fmt.Printf("crawled %d categories, stored %d places\n", len(req.Types), len(results))
		for _, p := range results {
			fmt.Printf("  %s\t%s\t%s\n", p.Name, p.Website, p.Phone)
		}
		return nil
	},
}

func init() {
	crawlCmd.Flags().StringVar(&crawlLocation, "location", "", "center coordinate as lat,lng (default from config)")
	crawlCmd.Flags().Float64Var(&crawlRadiusKM, "radius", 0, "search radius in km (default from config)")
	crawlCmd.Flags().StringVar(&crawlKeyword, "keyword", "", "free-text keyword override")
	crawlCmd.Flags().StringSliceVar(&crawlTypes, "types", nil, "business categories to crawl (default from config)")
	crawlCmd.Flags().StringVar(&crawlHasWebsite, "has-website", "both", "keep places with a website (yes), without (no), or all (both)")
	rootCmd.AddCommand(crawlCmd)
}
