// check-patients 直接读取持久槽，检查患者记录集合是否完整
//
// 按 wisefido-patients 相同的配置（环境变量 / CONFIG_FILE）连接后端，
// 报告记录数、标识格式、重复标识、年龄越界、姓名缺失。发现问题时退出码为 1。
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"wisefido-patients/internal/config"
	"wisefido-patients/internal/domain"
	"wisefido-patients/internal/idgen"
	"wisefido-patients/internal/service"
	"wisefido-patients/internal/store"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// issue 单条问题
type issue struct {
	Index      int
	Identifier string
	Problem    string
}

// report 检查结果
type report struct {
	Total  int
	Issues []issue
}

func (r report) OK() bool { return len(r.Issues) == 0 }

// 退出码
const (
	exitOK       = 0
	exitProblems = 1
	exitFailure  = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 返回退出码；os.Exit 只在 main 中调用，保证连接被关闭
func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("check-patients", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := fs.String("backend", "", "override STORE_BACKEND (memory/redis/postgres)")
	slotKey := fs.String("slot", "", "override STORE_SLOT_KEY")
	verbose := fs.BoolP("verbose", "v", false, "list every record")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitFailure
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return exitFailure
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *slotKey != "" {
		cfg.Store.SlotKey = *slotKey
	}
	// 检查工具不回退到空的内存槽，否则总是报告 0 条
	cfg.Store.FallbackMemory = false

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slot, closeSlot, err := store.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open %s slot: %v\n", cfg.Store.Backend, err)
		return exitFailure
	}
	defer closeSlot()

	return check(ctx, slot, cfg.Store.SlotKey, *verbose, stdout, stderr)
}

// check 读取槽并输出报告
func check(ctx context.Context, slot store.Slot, key string, verbose bool, stdout, stderr io.Writer) int {
	raw, err := slot.Load(ctx, key)
	if errors.Is(err, store.ErrMiss) {
		fmt.Fprintf(stdout, "slot %q is empty (no patients registered)\n", key)
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load slot %q: %v\n", key, err)
		return exitFailure
	}

	rep, records, err := inspect(raw)
	if err != nil {
		fmt.Fprintf(stderr, "Slot %q is not a patient collection: %v\n", key, err)
		return exitProblems
	}
	printReport(stdout, key, rep, records, verbose)
	if !rep.OK() {
		return exitProblems
	}
	return exitOK
}

// inspect 解析槽内容并逐条检查
func inspect(raw []byte) (report, []domain.Patient, error) {
	var records []domain.Patient
	if err := json.Unmarshal(raw, &records); err != nil {
		return report{}, nil, err
	}

	rep := report{Total: len(records)}
	seen := make(map[string]int, len(records))
	for i, p := range records {
		if !idgen.Valid(p.Identifier) {
			rep.Issues = append(rep.Issues, issue{i, p.Identifier, "identifier is not P + 6 digits"})
		}
		if first, dup := seen[p.Identifier]; dup {
			rep.Issues = append(rep.Issues, issue{i, p.Identifier, fmt.Sprintf("duplicate of record %d", first)})
		} else {
			seen[p.Identifier] = i
		}
		if strings.TrimSpace(p.Name) == "" {
			rep.Issues = append(rep.Issues, issue{i, p.Identifier, "name is empty"})
		}
		if p.Age < service.MinAge || p.Age > service.MaxAge {
			rep.Issues = append(rep.Issues, issue{i, p.Identifier, fmt.Sprintf("age %d out of range", p.Age)})
		}
		if p.RegisteredAt.IsZero() {
			rep.Issues = append(rep.Issues, issue{i, p.Identifier, "registration time missing"})
		}
	}
	return rep, records, nil
}

func printReport(w io.Writer, key string, rep report, records []domain.Patient, verbose bool) {
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "slot %q: %d patient record(s)\n", key, rep.Total)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	if verbose {
		fmt.Fprintf(w, "%-5s %-10s %-24s %-4s %s\n", "#", "ID", "NAME", "AGE", "REGISTERED")
		for i, p := range records {
			fmt.Fprintf(w, "%-5d %-10s %-24s %-4d %s\n", i, p.Identifier, p.Name, p.Age, p.RegisteredAt.Format(time.RFC3339))
		}
		fmt.Fprintln(w, strings.Repeat("-", 60))
	}

	if rep.OK() {
		fmt.Fprintln(w, "OK: no problems found")
		return
	}
	fmt.Fprintf(w, "%d problem(s):\n", len(rep.Issues))
	for _, is := range rep.Issues {
		fmt.Fprintf(w, "  record %d (%q): %s\n", is.Index, is.Identifier, is.Problem)
	}
}
