// Command attest generates and verifies signed build attestation
// reports for extension bundles.
package main

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/oxidekit/oxidekit-core/application/validation"
	"github.com/oxidekit/oxidekit-core/attestation"
	"github.com/oxidekit/oxidekit-core/domain/entities"
	"github.com/oxidekit/oxidekit-core/infrastructure/attestlog"
	"github.com/oxidekit/oxidekit-core/infrastructure/parser"
	"github.com/oxidekit/oxidekit-core/infrastructure/recordstore"
	"github.com/oxidekit/oxidekit-core/infrastructure/signing"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "attest",
		Short:         "Generate and verify extension build attestations",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newReportCmd())
	root.AddCommand(newVerifyCmd())
	root.AddCommand(newKeygenCmd())
	root.AddCommand(newSchemaCmd())
	return root
}

func newReportCmd() *cobra.Command {
	var (
		keyPath    string
		outPath    string
		recordsDir string
		logPath    string
		badgeURL   string
	)

	cmd := &cobra.Command{
		Use:   "report <bundle-dir>",
		Short: "Attest a bundle and emit its verification report",
		Long: `Attest validates the bundle's manifest, extracts the capabilities its
WASM module references, diffs them against the declaration, walks the
dependency tree into an SBOM, and emits a signed verification report.

The command exits 0 only when the verdict is "match".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signing.LoadSigner(keyPath)
			if err != nil {
				return err
			}

			bundle, err := entities.ReadBundleDir(args[0])
			if err != nil {
				return err
			}
			v := validation.NewValidator(validation.WithParser(parser.NewManifestParser()))
			manifest, err := v.ValidateRaw(bundle.ManifestRaw)
			if err != nil {
				return fmt.Errorf("manifest rejected: %w", err)
			}
			bundle.Manifest = manifest

			var opts []attestation.EngineOption
			if recordsDir != "" {
				opts = append(opts, attestation.WithRecordStore(recordstore.NewFileStore(recordsDir)))
			}
			if logPath != "" {
				opts = append(opts, attestation.WithEventLog(attestlog.NewFileLog(logPath)))
			}
			engine, err := attestation.NewEngine(signer, opts...)
			if err != nil {
				return err
			}

			record, err := engine.Attest(cmd.Context(), bundle)
			if err != nil {
				return err
			}

			doc := attestation.NewDocument(record, badgeURL)
			out, err := attestation.MarshalDocument(doc)
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			} else if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return err
			}

			if record.Verdict != entities.VerdictMatch {
				return fmt.Errorf("attestation verdict: %s", record.Verdict)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "path to hex-encoded Ed25519 signing key (required)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "report output path, - for stdout")
	cmd.Flags().StringVar(&recordsDir, "records", "", "directory caching records by content hash")
	cmd.Flags().StringVar(&logPath, "log", "", "append-only attestation event log path")
	cmd.Flags().StringVar(&badgeURL, "badge-url", "", "base URL for verification badges")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newVerifyCmd() *cobra.Command {
	var pubHex string

	cmd := &cobra.Command{
		Use:   "verify <bundle-dir> <record.json>",
		Short: "Verify a stored attestation record against a bundle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pub, err := hex.DecodeString(pubHex)
			if err != nil {
				return fmt.Errorf("invalid public key: %w", err)
			}

			bundle, err := entities.ReadBundleDir(args[0])
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var record entities.AttestationRecord
			if err := json.Unmarshal(raw, &record); err != nil {
				return fmt.Errorf("failed to parse record: %w", err)
			}

			if err := attestation.VerifyBundle(&record, bundle, pub); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "record verified: %s@%s verdict=%s\n",
				record.Subject.Name, record.Subject.Version, record.Verdict)
			if record.Verdict != entities.VerdictMatch {
				return fmt.Errorf("attestation verdict: %s", record.Verdict)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&pubHex, "pubkey", "p", "", "hex-encoded Ed25519 public key (required)")
	_ = cmd.MarkFlagRequired("pubkey")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new Ed25519 signing key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := signing.GenerateSigner()
			if err != nil {
				return err
			}
			if err := signer.SaveKey(keyPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key written to %s\npublic key: %s\n",
				keyPath, hex.EncodeToString(signer.PublicKey()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "attest.key", "output path for the private key")
	return cmd
}

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the manifest JSON schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := validation.ManifestSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(schema))
			return nil
		},
	}
}
