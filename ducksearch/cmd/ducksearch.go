// Command-line interface for running searches without the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ducksearch/ducksearch/config"
	"ducksearch/ducksearch/controllers"
	"ducksearch/ducksearch/services/search"
	"ducksearch/ducksearch/sources/storage"
	"ducksearch/ducksearch/utils/color"
	"ducksearch/ducksearch/utils/jsonutils"
	"ducksearch/ducksearch/utils/logging"
	"ducksearch/ducksearch/utils/types"

	"github.com/spf13/cobra"
)

type searchFlags struct {
	configFile string
	maxResults int
	region     string
	deep       bool
	pages      int
	detailed   bool
	jsonOut    bool
	save       string
	noColor    bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, color.ColorError("Error: "+err.Error()))
		os.Exit(1)
	}
}

// NewRootCmd returns the root command with one subcommand per category.
func NewRootCmd() *cobra.Command {
	flags := &searchFlags{}
	rootCmd := &cobra.Command{
		Use:           "ducksearch",
		Short:         "Search DuckDuckGo from the terminal",
		Long:          "ducksearch runs text, image, news and video searches against DuckDuckGo and can enrich text results with page metadata.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flags.noColor || flags.jsonOut {
				color.Disable()
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.configFile, "config", "", "YAML config file (overrides DUCKSEARCH_CONFIG)")
	rootCmd.PersistentFlags().IntVarP(&flags.maxResults, "max", "n", config.DefaultMaxResults, "maximum number of results")
	rootCmd.PersistentFlags().StringVarP(&flags.region, "region", "r", "", "region code, e.g. us-en or uk-en")
	rootCmd.PersistentFlags().BoolVar(&flags.detailed, "detailed", false, "print every available field")
	rootCmd.PersistentFlags().BoolVar(&flags.jsonOut, "json", false, "print the response as JSON")
	rootCmd.PersistentFlags().StringVar(&flags.save, "save", "", "save results to this file under the results directory")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored output")

	textCmd := newSearchCmd(flags, types.CategoryText, "text <query>", "Web search")
	textCmd.Flags().BoolVar(&flags.deep, "deep", false, "fetch and extract the pages of the top results")
	textCmd.Flags().IntVar(&flags.pages, "pages", config.DefaultMaxPages, "pages to enrich with --deep")

	rootCmd.AddCommand(textCmd)
	rootCmd.AddCommand(newSearchCmd(flags, types.CategoryImage, "images <query>", "Image search"))
	rootCmd.AddCommand(newSearchCmd(flags, types.CategoryNews, "news <query>", "News search"))
	rootCmd.AddCommand(newSearchCmd(flags, types.CategoryVideo, "videos <query>", "Video search"))
	return rootCmd
}

func newSearchCmd(flags *searchFlags, category types.Category, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.configFile != "" {
				os.Setenv("DUCKSEARCH_CONFIG", flags.configFile)
			}
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := logging.InitLogger(cfg.Log); err != nil {
				return err
			}
			defer logging.Sync()

			return runSearch(cmd, search.NewFromConfig(cfg), storage.NewFileStore(cfg.Storage.ResultsDir), flags, category, args)
		},
	}
}

func runSearch(cmd *cobra.Command, svc controllers.Searcher, files *storage.FileStore, flags *searchFlags, category types.Category, args []string) error {
	req := types.SearchRequest{
		Query:      joinArgs(args),
		Category:   string(category),
		MaxResults: flags.maxResults,
		Region:     flags.region,
	}
	if category == types.CategoryText && flags.deep {
		req.DeepScrape = true
		pages := flags.pages
		req.MaxPages = &pages
	}

	out := cmd.OutOrStdout()
	if !flags.jsonOut {
		fmt.Fprintf(out, "%s %s\n", color.ColorInfo("Searching "+string(category)+":"), req.Query)
	}
	resp, err := svc.Search(cmd.Context(), req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(controllers.PublicMessage(resp, nil))
	}

	if flags.jsonOut {
		if err := jsonutils.Encode(out, resp); err != nil {
			return err
		}
	} else {
		printResults(out, resp.Results, flags.detailed)
	}

	if flags.save != "" {
		saver := controllers.NewSaveController(files, nil, nil)
		saved, err := saver.Save(cmd.Context(), types.SaveRequest{
			Results:  resp.Results,
			Filename: flags.save,
			Query:    req.Query,
			Category: string(category),
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), color.ColorInfo("Results saved to "+saved.Filepath))
	}
	return nil
}
