// Command mpqr runs a single positional bridge call or summarizes an audit journal.
//
//	mpqr call <action> [config_path] [idempotency_key] [order_id] ...
//	mpqr report <journal.jsonl>
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yourorg/mpqr-bridge/internal/bridge"
	"github.com/yourorg/mpqr-bridge/internal/dispatch"
	"github.com/yourorg/mpqr-bridge/internal/logging"
	"github.com/yourorg/mpqr-bridge/internal/reporting"
	"github.com/yourorg/mpqr-bridge/internal/slots"
)

var outputNames = []string{"res", "msg", "id", "qr_data", "status", "payment_id", "raw_json"}

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, nil))
}

// run returns the process exit code. For call it is the result code. d is
// built from the environment when nil.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d *dispatch.Dispatcher) int {
	fs := flag.NewFlagSet("mpqr", flag.ContinueOnError)
	fs.SetOutput(stderr)
	debug := fs.Bool("debug", false, "log at debug level")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: mpqr [-debug] call <slot0> [slot1 ...]")
		fmt.Fprintln(stderr, "       mpqr report <journal.jsonl>")
	}
	if err := fs.Parse(args); err != nil {
		return bridge.ResFatal
	}

	rest := fs.Args()
	if len(rest) < 2 {
		fs.Usage()
		return bridge.ResFatal
	}

	switch rest[0] {
	case "call":
		if d == nil {
			// Logs go to LOG_FILE or mp.log.file only; stdout carries the outputs.
			logger, err := logging.NewLogger(logging.Options{Service: "mpqr", Quiet: true, Debug: *debug})
			if err != nil {
				fmt.Fprintf(stderr, "logger: %v\n", err)
				logger = zap.NewNop()
			}
			defer logger.Sync()
			d = dispatch.New(dispatch.WithLogger(logger))
		}
		return call(ctx, d, rest[1:], stdout)
	case "report":
		if err := report(rest[1], stdout); err != nil {
			fmt.Fprintf(stderr, "report: %v\n", err)
			return bridge.ResFatal
		}
		return bridge.ResOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return bridge.ResFatal
	}
}

func call(ctx context.Context, d *dispatch.Dispatcher, args []string, stdout io.Writer) int {
	params := make([]string, slots.Size)
	copy(params, args)

	res := d.Call(ctx, params)
	for i, v := range slots.Outputs(params) {
		fmt.Fprintf(stdout, "%s=%s\n", outputNames[i], v)
	}
	return res
}

func report(path string, stdout io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entries, err := reporting.ReadEntries(f)
	if err != nil {
		return err
	}
	rep, err := reporting.NewRetrospectiveReporter().GenerateRetrospective(entries)
	if err != nil {
		return err
	}
	return rep.Format(stdout)
}
