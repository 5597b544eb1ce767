// patientctl 患者登记服务命令行工具
//
//	patientctl [--server URL] register --name Ann --age 30 ...
//	patientctl get P000123
//	patientctl list [--search ann]
//	patientctl lookup https://host/ps/P000123
//	patientctl export [--out Patient_Records.xlsx] [--search ann]
//	patientctl barcode P000123 [--out P000123.png] [--text=false]
//	patientctl text P000123 [--out Patient-P000123.txt]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wisefido-patients/internal/client"
	"wisefido-patients/internal/export"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const defaultServer = "http://localhost:8080"

var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := pflag.NewFlagSet("patientctl", pflag.ContinueOnError)
	global.SetOutput(stderr)
	global.SetInterspersed(false)
	server := global.String("server", envOr("PATIENTS_SERVER", defaultServer), "patients service base URL")
	timeout := global.Duration("timeout", 30*time.Second, "request timeout")
	verbose := global.BoolP("verbose", "v", false, "log requests to stderr")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(stderr, global)
			return nil
		}
		return err
	}

	rest := global.Args()
	if len(rest) == 0 {
		printUsage(stderr, global)
		return errUsage
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			logger = l
			defer logger.Sync()
		}
	}
	c := client.New(*server, *timeout, logger)

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "register":
		return runRegister(ctx, c, cmdArgs, stdout, stderr)
	case "get":
		return runGet(ctx, c, cmdArgs, stdout, stderr)
	case "list":
		return runList(ctx, c, cmdArgs, stdout, stderr)
	case "lookup":
		return runLookup(ctx, c, cmdArgs, stdout, stderr)
	case "export":
		return runExport(ctx, c, cmdArgs, stdout, stderr)
	case "barcode":
		return runBarcode(ctx, c, cmdArgs, stdout, stderr)
	case "text":
		return runText(ctx, c, cmdArgs, stdout, stderr)
	case "help":
		printUsage(stderr, global)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", cmd)
		printUsage(stderr, global)
		return errUsage
	}
}

func runRegister(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("register", stderr)
	var req client.RegisterRequest
	fs.StringVar(&req.Name, "name", "", "patient name (required)")
	fs.IntVar(&req.Age, "age", 0, "age, 1..120 (required)")
	fs.StringVar(&req.Gender, "gender", "", "gender")
	fs.StringVar(&req.BloodType, "blood-type", "", "blood type")
	fs.StringVar(&req.Contact, "contact", "", "contact number")
	fs.StringVar(&req.Address, "address", "", "address")
	fs.StringVar(&req.MedicalHistory, "history", "", "medical history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.Register(ctx, req)
	if err != nil {
		return err
	}
	return printJSON(stdout, p)
}

func runGet(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	id, err := singleArg("get", "<patient-id>", args, stderr)
	if err != nil {
		return err
	}
	p, err := c.Get(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(stdout, p)
}

func runList(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("list", stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of a table")
	search := fs.StringP("search", "s", "", "only patients whose name or ID contains this text (case-insensitive)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patients, err := c.List(ctx, *search)
	if err != nil {
		return err
	}
	if *asJSON {
		return printJSON(stdout, patients)
	}
	fmt.Fprintf(stdout, "%-8s  %-20s  %3s  %s\n", "ID", "NAME", "AGE", "REGISTERED")
	for _, p := range patients {
		fmt.Fprintf(stdout, "%-8s  %-20s  %3d  %s\n", p.Identifier, p.Name, p.Age, p.RegisteredAt.Local().Format(time.DateTime))
	}
	return nil
}

func runLookup(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	input, err := singleArg("lookup", "<patient-id | scan-url>", args, stderr)
	if err != nil {
		return err
	}
	p, err := c.Lookup(ctx, input)
	if err != nil {
		return err
	}
	return printJSON(stdout, p)
}

func runExport(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	out := fs.StringP("out", "o", export.Filename, "output file")
	search := fs.StringP("search", "s", "", "only export patients whose name or ID contains this text")
	if err := fs.Parse(args); err != nil {
		return err
	}

	buf, err := c.ExportWorkbook(ctx, *search)
	if err != nil {
		return err
	}
	return writeFile(stdout, *out, buf)
}

func runBarcode(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("barcode", stderr)
	out := fs.StringP("out", "o", "", "output file (default <patient-id>.png)")
	withText := fs.Bool("text", true, "print the identifier under the bars")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: patientctl barcode <patient-id> [--out FILE] [--text=false]")
		return errUsage
	}
	id := fs.Arg(0)

	buf, err := c.Barcode(ctx, id, *withText)
	if err != nil {
		return err
	}
	if *out == "" {
		*out = id + ".png"
	}
	return writeFile(stdout, *out, buf)
}

func runText(ctx context.Context, c *client.Client, args []string, stdout, stderr io.Writer) error {
	fs := newFlagSet("text", stderr)
	out := fs.StringP("out", "o", "", "output file (default Patient-<patient-id>.txt, - for stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: patientctl text <patient-id> [--out FILE]")
		return errUsage
	}
	id := fs.Arg(0)

	buf, err := c.ExportText(ctx, id)
	if err != nil {
		return err
	}
	switch *out {
	case "-":
		_, err = stdout.Write(buf)
		return err
	case "":
		*out = "Patient-" + id + ".txt"
	}
	return writeFile(stdout, *out, buf)
}

func newFlagSet(name string, stderr io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet("patientctl "+name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func singleArg(name, metavar string, args []string, stderr io.Writer) (string, error) {
	fs := newFlagSet(name, stderr)
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "usage: patientctl %s %s\n", name, metavar)
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(stdout io.Writer, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func printUsage(w io.Writer, global *pflag.FlagSet) {
	fmt.Fprint(w, `patientctl - patient registration client

Usage:
  patientctl [global flags] <command> [args]

Commands:
  register   register a patient (--name, --age, --gender, --blood-type, --contact, --address, --history)
  get        show one patient by identifier
  list       list patients in registration order (--search to filter by name or ID)
  lookup     resolve a patient identifier or scanned URL
  export     download the patient workbook (Patient_Records.xlsx, --search to filter)
  barcode    download a patient's Code128 barcode PNG
  text       download a patient's plain-text record

Global flags:
`)
	fmt.Fprint(w, global.FlagUsages())
}
