package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const requestTimeout = 90 * time.Second

// --- record ---

var recordCmd = &cobra.Command{
	Use:   "record <like|dislike>",
	Short: "Record a reaction to a video",
	Long: `Record a like or dislike reaction to a video.

Examples:
  vidrank record like --title "Go concurrency patterns" --video-id dQw4w9WgXcQ
  vidrank record dislike --title "Clickbait compilation" --video-id abc123`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		action := strings.ToLower(args[0])
		if action != "like" && action != "dislike" {
			return fmt.Errorf("action must be like or dislike, got %q", args[0])
		}
		title, _ := cmd.Flags().GetString("title")
		videoID, _ := cmd.Flags().GetString("video-id")
		if title == "" || videoID == "" {
			return fmt.Errorf("--title and --video-id are required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp, err := client.post(ctx, "/v1/feedback", map[string]string{
			"action":  action,
			"title":   title,
			"videoId": videoID,
		})
		if err != nil {
			return err
		}

		var result struct {
			Recorded bool `json:"recorded"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return err
		}

		if result.Recorded {
			printSuccess("recorded %s for %q", action, title)
		} else {
			printWarning("reaction was not recorded (see server log)")
		}
		return nil
	},
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest <query>",
	Short: "Suggest search terms for a query",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp, err := client.post(ctx, "/v1/suggestions", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			SearchTerms []struct {
				Term       string  `json:"term"`
				MatchScore float64 `json:"matchScore"`
			} `json:"searchTerms"`
			Sentiment string `json:"sentiment"`
			Context   string `json:"context"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return err
		}

		printStatus("sentiment", "%s", result.Sentiment)
		printStatus("context", "%s", result.Context)
		for _, st := range result.SearchTerms {
			fmt.Fprintf(os.Stdout, "%6.1f  %s\n", st.MatchScore, st.Term)
		}
		return nil
	},
}

// --- recommend ---

var recommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show the recommended next search term",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp, err := client.get(ctx, "/v1/recommendation")
		if err != nil {
			return err
		}

		var result struct {
			Term string `json:"term"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return err
		}

		if result.Term == "" {
			printWarning("no history yet — record some reactions first")
			return nil
		}
		fmt.Fprintln(os.Stdout, result.Term)
		return nil
	},
}

// --- search ---

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run the full pipeline: suggest, search YouTube, rerank",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		printStep("searching for %q", query)
		resp, err := client.post(ctx, "/v1/search", map[string]string{"query": query})
		if err != nil {
			return err
		}

		var result struct {
			Term   string `json:"term"`
			Videos []struct {
				Title   string `json:"title"`
				VideoID string `json:"videoId"`
			} `json:"videos"`
		}
		if err := decodeResponse(resp, &result); err != nil {
			return err
		}

		printStatus("term", "%s", result.Term)
		for _, v := range result.Videos {
			fmt.Fprintf(os.Stdout, "%s  https://youtube.com/watch?v=%s\n", v.Title, v.VideoID)
		}
		return nil
	},
}

func init() {
	recordCmd.Flags().String("title", "", "video title")
	recordCmd.Flags().String("video-id", "", "YouTube video id")
}
