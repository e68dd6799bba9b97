package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Svigo-o/PoCGen/pkg/client"
)

type replayFlags struct {
	id     int64
	file   string
	host   string
	port   int
	https  bool
	output string
}

var replayFlagVals replayFlags

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay raw request bytes against a destination",
	Long: `Replay sends raw request bytes verbatim to host:port and prints the raw
response. The bytes come from a stored capture (--id), a file (--file) or
stdin.`,
	Example: `  # Replay capture 3 against its original host
  pocgen replay --id 3 --host example.com --port 80

  # Replay a hand-crafted request over TLS
  pocgen replay --file payload.raw --host example.com --port 443 --https

  # Pipe bytes through
  cat payload.raw | pocgen replay --host 10.0.0.5 --port 8080 -o response.raw`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(&replayFlagVals)
	},
}

func init() {
	f := &replayFlagVals
	replayCmd.Flags().Int64Var(&f.id, "id", -1, "replay a stored capture by id")
	replayCmd.Flags().StringVarP(&f.file, "file", "f", "", "read raw request bytes from file")
	replayCmd.Flags().StringVar(&f.host, "host", "", "destination host (required)")
	replayCmd.Flags().IntVar(&f.port, "port", 80, "destination port")
	replayCmd.Flags().BoolVar(&f.https, "https", false, "send over TLS")
	replayCmd.Flags().StringVarP(&f.output, "output", "o", "", "write raw response to file instead of stdout")
	_ = replayCmd.MarkFlagRequired("host")

	rootCmd.AddCommand(replayCmd)
}

func runReplay(f *replayFlags) error {
	if f.id >= 0 && f.file != "" {
		return errors.New("--id and --file are mutually exclusive")
	}

	ctx := context.Background()
	c := client.New(apiURL, client.WithTimeout(replayTimeout))

	var raw []byte
	var err error
	switch {
	case f.id >= 0:
		raw, err = c.GetRaw(ctx, f.id)
		if err != nil {
			return fmt.Errorf("fetch capture %d: %w", f.id, err)
		}
	case f.file != "":
		raw, err = os.ReadFile(f.file)
		if err != nil {
			return fmt.Errorf("read %s: %w", f.file, err)
		}
	default:
		raw, err = io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}
	if len(raw) == 0 {
		return errors.New("no request bytes to replay")
	}

	resp, err := c.ReplayRaw(ctx, f.host, f.port, f.https, raw)
	if err != nil {
		return err
	}

	if f.output != "" {
		return os.WriteFile(f.output, resp, 0o644)
	}
	_, err = os.Stdout.Write(resp)
	return err
}
