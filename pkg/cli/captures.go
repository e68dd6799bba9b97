package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Svigo-o/PoCGen/pkg/client"
)

// clientTimeout bounds control API calls made by CLI commands. Replay gets
// longer because the dispatch itself may be slow.
const (
	clientTimeout = 15 * time.Second
	replayTimeout = 2 * time.Minute
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained captures",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(apiURL, client.WithTimeout(clientTimeout))
		summaries, err := c.List(context.Background())
		if err != nil {
			return err
		}

		if listJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(summaries)
		}

		if len(summaries) == 0 {
			fmt.Println("no captures")
			return nil
		}
		fmt.Printf("%-6s %-8s %-5s %-6s %s\n", "ID", "METHOD", "TLS", "PORT", "URL")
		for _, s := range summaries {
			tls := "no"
			if s.Secure {
				tls = "yes"
			}
			fmt.Printf("%-6d %-8s %-5s %-6d %s\n", s.ID, s.Method, tls, s.Port, s.URL)
		}
		return nil
	},
}

var getOutput string

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print the raw bytes of a capture",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}

		c := client.New(apiURL, client.WithTimeout(clientTimeout))
		raw, err := c.GetRaw(context.Background(), id)
		if err != nil {
			return err
		}

		if getOutput != "" {
			return os.WriteFile(getOutput, raw, 0o644)
		}
		_, err = os.Stdout.Write(raw)
		return err
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show controller status",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(apiURL, client.WithTimeout(clientTimeout))
		status, err := c.Status(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("status:    %s\n", status.Status)
		fmt.Printf("uptime:    %ds\n", status.Uptime)
		fmt.Printf("captures:  %d / %d\n", status.Captures, status.Capacity)
		fmt.Printf("version:   %s\n", status.Version)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop all retained captures",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := client.New(apiURL, client.WithTimeout(clientTimeout))
		n, err := c.Clear(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d captures\n", n)
		return nil
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
	getCmd.Flags().StringVarP(&getOutput, "output", "o", "", "write raw bytes to file instead of stdout")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearCmd)
}
