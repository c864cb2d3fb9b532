package logger

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/sprintbot/core/buildinfo"
	coreconfig "github.com/m3rciful/sprintbot/core/config"
)

// Component names shared by the bot's packages.
const (
	CompApp      = "app"
	CompDB       = "db"
	CompMigrate  = "db.migrate"
	CompSeed     = "db.seed"
	CompTG       = "tg"
	CompWire     = "tg.wire"
	CompFlow     = "flow"
	CompSession  = "session"
	CompTasks    = "service.tasks"
	CompSprints  = "service.sprints"
	CompUsers    = "service.users"
	CompSender   = "tg.sender"
	defaultDebug = "1/50"
)

var (
	initOnce sync.Once
	stopOnce sync.Once

	out     *sink
	files   []io.Closer
	level   slog.LevelVar
	debug   sampler
	tracing bool

	// L is the base logger.
	L *slog.Logger

	// Pre-scoped loggers for the infrastructure packages.
	DB, TG, MIG, TWire, SEED *slog.Logger
)

// Until InitLogger runs everything goes through slog's default handler, so
// packages and tests can log before bootstrap.
func init() {
	debug.Set(debugRatio(defaultDebug))
	setBase(slog.Default())
}

func setBase(l *slog.Logger) {
	L = l
	DB = l.With("component", CompDB)
	TG = l.With("component", CompTG)
	MIG = l.With("component", CompMigrate)
	TWire = l.With("component", CompWire)
	SEED = l.With("component", CompSeed)
}

// InitLogger installs the structured handler described by cfg. Only the
// first call has any effect.
func InitLogger(cfg *coreconfig.Config) error {
	initOnce.Do(func() {
		var lc coreconfig.LoggingConfig
		if cfg != nil {
			lc = cfg.Logging
		}
		level.Set(levelOf(lc.Level))
		debug.Set(debugRatio(lc.DebugSample))
		tracing = truthy(os.Getenv("TRACE")) || truthy(os.Getenv("LOG_TRACE"))

		outputs := []io.Writer{os.Stdout}
		if f := openFile(lc.Dir, lc.BotFile); f != nil {
			outputs = append(outputs, f)
			files = append(files, f)
		}
		out = newSink(outputs, 64<<10)

		base := slog.New(newLineHandler(&level, out, formatOf(lc), orderOf(lc.KeysOrder)))
		slog.SetDefault(base)
		setBase(base)

		attrs := append([]slog.Attr{
			slog.String("component", CompApp),
			slog.String("event", "startup"),
			slog.String("go_version", runtime.Version()),
		}, buildinfo.Attrs()...)
		attrs = append(attrs, slog.String("cfg_profile", profileOf(lc)))
		base.LogAttrs(context.Background(), slog.LevelInfo, "startup", attrs...)
	})
	return nil
}

// Shutdown flushes pending lines and closes log files.
func Shutdown() error {
	var errs []error
	stopOnce.Do(func() {
		if out != nil {
			errs = append(errs, out.Flush(), out.Close())
		}
		for _, f := range files {
			errs = append(errs, f.Close())
		}
	})
	return errors.Join(errs...)
}

// openFile opens dir/name for appending. Failures are reported on stderr and
// leave file logging disabled.
func openFile(dir, name string) *os.File {
	dir, name = strings.TrimSpace(dir), strings.TrimSpace(name)
	if dir == "" || name == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("logger: create %s: %v", dir, err)
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("logger: open %s: %v", name, err)
		return nil
	}
	return f
}

func formatOf(lc coreconfig.LoggingConfig) logFormat {
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		return formatKV
	case "json":
		return formatJSON
	}
	switch strings.ToLower(lc.Profile) {
	case "debug", "dev":
		return formatKV
	}
	return formatJSON
}

func orderOf(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return slices.Clone(keyOrder)
	}
	var order []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			order = append(order, k)
		}
	}
	if len(order) == 0 {
		return slices.Clone(keyOrder)
	}
	return order
}

func levelOf(raw string) slog.Level {
	switch levelName(raw) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR", "FATAL":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func profileOf(lc coreconfig.LoggingConfig) string {
	if p := strings.TrimSpace(lc.Profile); p != "" {
		return strings.ToLower(p)
	}
	return "prod"
}

// debugRatio parses logging.debug_sample. "0" keeps every debug line; an
// empty or malformed value falls back to the default ratio.
func debugRatio(ratio string) (int, int) {
	if n, d, ok := parseRatio(ratio); ok {
		return n, d
	}
	n, d, _ := parseRatio(defaultDebug)
	return n, d
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

// Background returns context.Background().
func Background() context.Context { return context.Background() }

// Component returns the base logger scoped to name.
func Component(name string) *slog.Logger {
	if name = strings.TrimSpace(name); name == "" {
		return L
	}
	return L.With("component", name)
}

// LogEvent writes attrs under the given event name. A nil logg falls back to
// the logger carried by ctx.
func LogEvent(ctx context.Context, logg *slog.Logger, lvl slog.Level, event string, attrs ...slog.Attr) {
	if logg == nil {
		logg = FromContext(ctx)
	}
	if event != "" {
		attrs = append([]slog.Attr{slog.String("event", event)}, attrs...)
	}
	logg.LogAttrs(ctx, lvl, "", attrs...)
}

// Debug logs a debug event for component.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelDebug, event, attrs...)
}

// Info logs an info event for component.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelInfo, event, attrs...)
}

// Warn logs a warning event for component.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelWarn, event, attrs...)
}

// Error logs an error event for component.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	LogEvent(ctx, Component(component), slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug line should be
// written. TRACE=1 in the environment lets every line through.
func ShouldSampleDebug() bool {
	return tracing || debug.Allow()
}
