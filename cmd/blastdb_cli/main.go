// Command blastdb_cli is the interactive shell for the blastdb core. Plain
// input lines are run through the SQL lexer and the resulting tokens and
// errors are printed; dot-commands operate the storage stack (page files
// behind the buffer pool).
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/blastdb/blastdb/core/sql/lexer"
	"github.com/blastdb/blastdb/core/storage/bufferpool"
	"github.com/blastdb/blastdb/core/storage/disk"
	"github.com/blastdb/blastdb/core/storage/page"
	commonutils "github.com/blastdb/blastdb/internal/common_utils"
	"github.com/blastdb/blastdb/pkg/logger"
	"github.com/blastdb/blastdb/pkg/telemetry"
)

// Config is the CLI's yaml configuration.
type Config struct {
	Logger    logger.Config    `yaml:"logger"`
	Telemetry telemetry.Config `yaml:"telemetry"`
	// PoolFrames is the buffer pool's frame count.
	PoolFrames int `yaml:"pool_frames"`
	// BackupRateBytesPerSec throttles .backup copies; 0 means unlimited.
	BackupRateBytesPerSec int64 `yaml:"backup_rate_bytes_per_sec"`
}

func defaultConfig() Config {
	return Config{
		Logger:     logger.Config{Level: "info", Format: "console", OutputFile: "stderr"},
		Telemetry:  telemetry.Config{Enabled: false, ListenAddr: ":9464"},
		PoolFrames: 64,
	}
}

func loadConfig(path string) (Config, error) {
	config := defaultConfig()
	if path == "" {
		return config, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if config.PoolFrames <= 0 {
		config.PoolFrames = 64
	}
	return config, nil
}

// shell bundles the live pieces the command handlers operate on.
type shell struct {
	config  Config
	log     *zap.Logger
	tracer  trace.Tracer
	manager *disk.Manager
	pool    *bufferpool.PagePool
	out     io.Writer
}

func main() {
	configPath := flag.String("config", "", "path to yaml config file")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logs, err := logger.New(config.Logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logs.Sync()
	log := logs.Component(logger.ComponentCLI).
		With(zap.String("session", uuid.NewString()))

	tel, err := telemetry.Start(config.Telemetry)
	if err != nil {
		log.Fatal("telemetry setup failed", zap.Error(err))
	}
	defer tel.Shutdown(context.Background())

	manager := disk.NewManager(logs.Component(logger.ComponentDisk))
	defer manager.CloseAll()

	pool := bufferpool.New(config.PoolFrames, manager.InitFunc, manager.FlushFunc,
		logs.Component(logger.ComponentBufferPool))
	if err := pool.RegisterMetrics(tel.Meter); err != nil {
		log.Warn("buffer pool metrics not registered", zap.Error(err))
	}

	sh := &shell{
		config:  config,
		log:     log,
		tracer:  tel.Tracer,
		manager: manager,
		pool:    pool,
		out:     os.Stdout,
	}

	rl, err := readline.New("blastdb> ")
	if err != nil {
		log.Fatal("readline setup failed", zap.Error(err))
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil { // io.EOF on ctrl-d
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ".exit" || line == ".quit" {
			break
		}
		if strings.HasPrefix(line, ".") {
			sh.runCommand(line)
			continue
		}
		sh.lexLine(line)
	}

	pool.FlushAll()
	log.Info("shutting down", zap.Any("pool_stats", pool.Stats()))
}

// lexLine tokenizes one line of SQL and prints the TokenLine.
func (sh *shell) lexLine(line string) {
	_, span := sh.tracer.Start(context.Background(), "blastdb.lex")
	defer span.End()

	tokenLine := lexer.Lex(line)
	span.SetAttributes(
		attribute.Int("tokens", len(tokenLine.Tokens)),
		attribute.Int("errors", len(tokenLine.Errors)),
	)

	for _, token := range tokenLine.Tokens {
		fmt.Fprintf(sh.out, "  %-3d %-15s %q\n", token.Column, token.Type, token.Value)
	}
	for i := range tokenLine.Errors {
		fmt.Fprintf(sh.out, "  error: %s\n", tokenLine.Errors[i].String())
	}
	if len(tokenLine.Tokens) == 0 && len(tokenLine.Errors) == 0 {
		fmt.Fprintln(sh.out, "  (no tokens)")
	}
}

func (sh *shell) runCommand(line string) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	ctx, span := sh.tracer.Start(context.Background(), "blastdb.command",
		trace.WithAttributes(attribute.String("command", cmd)))
	defer span.End()

	var err error
	switch cmd {
	case ".help":
		sh.printHelp()
	case ".create":
		err = sh.openFile(args, true)
	case ".open":
		err = sh.openFile(args, false)
	case ".alloc":
		err = sh.allocPage(args)
	case ".read":
		err = sh.readPage(args)
	case ".write":
		err = sh.writePage(args)
	case ".pin":
		err = sh.pinPage(args, true)
	case ".unpin":
		err = sh.pinPage(args, false)
	case ".flushall":
		sh.pool.FlushAll()
		fmt.Fprintln(sh.out, "  flushed")
	case ".stats":
		stats := sh.pool.Stats()
		fmt.Fprintf(sh.out, "  hits=%d misses=%d evictions=%d writebacks=%d exhausted=%d\n",
			stats.Hits, stats.Misses, stats.Evictions, stats.WriteBacks, stats.Exhausted)
	case ".backup":
		err = sh.backup(ctx, args)
	default:
		err = fmt.Errorf("unknown command %s (try .help)", cmd)
	}
	if err != nil {
		span.RecordError(err)
		fmt.Fprintf(sh.out, "  error: %v\n", err)
	}
}

func (sh *shell) printHelp() {
	fmt.Fprint(sh.out, `  <sql>                  lex the line and print tokens
  .create <path>         create a new page file
  .open <path>           open an existing page file
  .alloc <fd>            allocate a fresh page
  .read <fd> <page>      fetch a page through the pool and dump its prefix
  .write <fd> <page> <text>  write text into the page and mark it dirty
  .pin <fd> <page>       pin a resident page
  .unpin <fd> <page>     unpin a resident page
  .flushall              write back all dirty pages
  .stats                 print pool counters
  .backup <fd> <dst>     flush and copy the file (throttled per config)
  .exit
`)
}

func (sh *shell) openFile(args []string, create bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: .open|.create <path>")
	}
	fd, err := sh.manager.Open(args[0], create)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  fd=%d %s\n", fd, args[0])
	return nil
}

func (sh *shell) allocPage(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: .alloc <fd>")
	}
	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}
	pf, err := sh.manager.File(fd)
	if err != nil {
		return err
	}
	pageNum, err := pf.AllocatePage()
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  page=%d\n", pageNum)
	return nil
}

func (sh *shell) readPage(args []string) error {
	fd, pageNum, err := parsePageRef(args)
	if err != nil {
		return err
	}
	data, err := sh.pool.GetPageData(fd, pageNum)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "  %q\n", printablePrefix(data, 64))
	return nil
}

func (sh *shell) writePage(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("usage: .write <fd> <page> <text>")
	}
	fd, pageNum, err := parsePageRef(args[:2])
	if err != nil {
		return err
	}
	text := strings.Join(args[2:], " ")
	if len(text) > page.PageSize {
		return fmt.Errorf("text longer than a page (%d bytes)", page.PageSize)
	}

	handle := sh.pool.Handle(fd, pageNum)
	data, err := handle.GetData()
	if err != nil {
		return err
	}
	handle.Pin()
	defer handle.Close()

	copy(data, text)
	sh.pool.MarkDirty(fd, pageNum)
	fmt.Fprintf(sh.out, "  wrote %d bytes\n", len(text))
	return nil
}

func (sh *shell) pinPage(args []string, pin bool) error {
	fd, pageNum, err := parsePageRef(args)
	if err != nil {
		return err
	}
	if !sh.pool.Resident(fd, pageNum) {
		return fmt.Errorf("page %d of fd %d is not resident", pageNum, fd)
	}
	if pin {
		sh.pool.Pin(fd, pageNum)
	} else {
		sh.pool.Unpin(fd, pageNum)
	}
	return nil
}

func (sh *shell) backup(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: .backup <fd> <dst>")
	}
	fd, err := parseFD(args[0])
	if err != nil {
		return err
	}
	pf, err := sh.manager.File(fd)
	if err != nil {
		return err
	}
	sh.pool.FlushAll()
	if err := pf.Sync(); err != nil {
		return err
	}
	copied, sum, err := commonutils.CopyThrottled(
		ctx, pf.Path(), args[1], sh.config.BackupRateBytesPerSec)
	if err != nil {
		return err
	}
	sh.log.Info("backup complete",
		zap.String("src", pf.Path()),
		zap.String("dst", args[1]),
		zap.Int64("bytes", copied),
	)
	fmt.Fprintf(sh.out, "  %d bytes, sha256=%x\n", copied, sum)
	return nil
}

func parseFD(s string) (page.FileID, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return page.InvalidFileID, fmt.Errorf("bad fd %q", s)
	}
	return page.FileID(n), nil
}

func parsePageRef(args []string) (page.FileID, page.PageNum, error) {
	if len(args) != 2 {
		return page.InvalidFileID, 0, fmt.Errorf("expected <fd> <page>")
	}
	fd, err := parseFD(args[0])
	if err != nil {
		return page.InvalidFileID, 0, err
	}
	n, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return page.InvalidFileID, 0, fmt.Errorf("bad page number %q", args[1])
	}
	return fd, page.PageNum(n), nil
}

// printablePrefix renders the first max bytes of a frame, stopping at the
// first NUL so freshly zeroed pages print compactly.
func printablePrefix(data []byte, max int) string {
	if len(data) > max {
		data = data[:max]
	}
	for i, b := range data {
		if b == 0 {
			return string(data[:i])
		}
	}
	return string(data)
}
