package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bft-labs/canlog/internal/cliconfig"
	"github.com/bft-labs/canlog/pkg/canlog"
)

func newStatusCmd() *cobra.Command {
	dir := cliconfig.DefaultLogDir

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status written by a running capture",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := canlog.ReadStatus(cmd.Context(), dir)
			if err != nil {
				return fmt.Errorf("read status: %w", err)
			}
			if st.State == "" {
				return fmt.Errorf("no status file in %s", dir)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State: %s (updated %s)\n", st.State, st.UpdatedAt.Format("2006-01-02 15:04:05"))
			if !st.StartedAt.IsZero() {
				fmt.Fprintf(out, "Started: %s\n", st.StartedAt.Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintln(out, canlog.FormatReadout(st.Counters))
			fmt.Fprintf(out, "Bytes: %d read, %d skipped, %d dropped\n", st.BytesRead, st.BytesSkipped, st.BytesDropped)
			fmt.Fprintf(out, "Frames: %d recovered, %d written, %d dropped in %d appends\n",
				st.FramesRecovered, st.FramesWritten, st.FramesDropped, st.FilesWritten)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "log-dir", dir, "log directory of the capture")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check that CAN_*.csv files decode to synchronized frames",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			bad := 0
			for _, path := range args {
				res, err := canlog.VerifyFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %d records, %d malformed, %d unsynced\n",
					path, res.Records, res.MalformedCount, res.Unsynced)
				for _, m := range res.Malformed {
					fmt.Fprintf(out, "  line %d: %v\n", m.Line, m.Err)
				}
				if !res.OK() {
					bad++
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d of %d files failed verification", bad, len(args))
			}
			return nil
		},
	}
}
