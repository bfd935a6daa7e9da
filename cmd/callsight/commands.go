package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/callsight/callsight/internal/config"
	"github.com/callsight/callsight/internal/storage"
)

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an audio recording of a sales call",
	Long: `Upload an audio recording of a sales call.

Examples:
  callsight upload ./call.mp3
  callsight upload --transcribe --analyze ./call.wav`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcribe, _ := cmd.Flags().GetBool("transcribe")
		analyze, _ := cmd.Flags().GetBool("analyze")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.uploadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		var record storage.CallRecord
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}
		printSuccess("Uploaded %s as call %s", record.Filename, record.ID)

		if !transcribe && !analyze {
			return nil
		}

		printStep("Transcribing...")
		tResp, err := client.post(cmd.Context(), "/api/transcribe/"+record.ID)
		if err != nil {
			return err
		}
		var tr struct {
			Transcription string `json:"transcription"`
		}
		if err := decodeJSON(tResp, &tr); err != nil {
			return err
		}
		printSuccess("Transcribed (%d chars)", len(tr.Transcription))

		if !analyze {
			return nil
		}

		printStep("Analyzing...")
		aResp, err := client.post(cmd.Context(), "/api/analyze/"+record.ID)
		if err != nil {
			return err
		}
		var analyzed storage.CallRecord
		if err := decodeJSON(aResp, &analyzed); err != nil {
			return err
		}
		if analyzed.OverallScore != nil {
			printSuccess("Analysis complete, overall score %d", *analyzed.OverallScore)
		} else {
			printSuccess("Analysis complete")
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().Bool("transcribe", false, "transcribe the call after uploading")
	uploadCmd.Flags().Bool("analyze", false, "transcribe and analyze the call after uploading")
}

// --- transcribe ---

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <id>",
	Short: "Transcribe an uploaded call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/transcribe/"+args[0])
		if err != nil {
			return err
		}
		var tr struct {
			Transcription string `json:"transcription"`
		}
		if err := decodeJSON(resp, &tr); err != nil {
			return err
		}

		printSuccess("Transcription complete")
		fmt.Fprintln(os.Stdout, tr.Transcription)
		return nil
	},
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Run sentiment and performance analysis on a transcribed call",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/analyze/"+args[0])
		if err != nil {
			return err
		}
		var record storage.CallRecord
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		printSuccess("Analysis complete")
		if record.OverallScore != nil {
			printStatus("Overall score", "%d", *record.OverallScore)
		}
		if record.AgentSentiment != nil {
			printStatus("Agent sentiment", "%s", record.AgentSentiment.GeneralSentiment)
		}
		if record.ProspectSentiment != nil {
			printStatus("Prospect sentiment", "%s", record.ProspectSentiment.GeneralSentiment)
		}
		if record.CallSummary != nil {
			fmt.Fprintln(os.Stdout, *record.CallSummary)
		}
		return nil
	},
}

// --- calls ---

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "List uploaded calls",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/calls")
		if err != nil {
			return err
		}
		var calls []storage.CallListItem
		if err := decodeJSON(resp, &calls); err != nil {
			return err
		}

		if len(calls) == 0 {
			printWarning("No calls uploaded yet")
			return nil
		}
		for _, c := range calls {
			fmt.Fprintln(os.Stdout, formatCallLine(c))
		}
		return nil
	},
}

func formatCallLine(c storage.CallListItem) string {
	score := "-"
	if c.OverallScore != nil {
		score = fmt.Sprintf("%d", *c.OverallScore)
	}
	return fmt.Sprintf("%s  %-30s  transcription=%s  analysis=%s  score=%s",
		c.ID, c.Filename, c.TranscriptionStatus, c.AnalysisStatus, score)
}

// --- show ---

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a call record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/calls/"+args[0])
		if err != nil {
			return err
		}
		var record any
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

// --- export ---

var exportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a call's analysis report",
	Long: `Export a call's analysis report.

Examples:
  callsight export abc123 --format pdf
  callsight export abc123 --format csv --output ./report.csv`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		format = strings.ToLower(format)
		if output == "" {
			output = fmt.Sprintf("%s_report.%s", args[0], format)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		if err := client.download(cmd.Context(), "/api/export/"+args[0]+"/"+format, output); err != nil {
			return err
		}
		printSuccess("Report written to %s", output)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("format", "pdf", "report format: pdf, csv, or xlsx")
	exportCmd.Flags().String("output", "", "output file path (default: <id>_report.<format>)")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
