package tradelog

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const timeLayout = "2006-01-02 15:04:05"

var (
	mu  sync.Mutex
	loc = time.FixedZone("KST", 9*3600)
)

// Entry is one filled order. Sell entries carry the realized P&L of the
// round trip they close.
type Entry struct {
	At      time.Time `json:"-"`
	Time    string    `json:"time"`
	CycleID string    `json:"cycle_id,omitempty"`
	Mode    string    `json:"mode,omitempty"`
	Symbol  string    `json:"symbol"`
	Side    string    `json:"side"`
	Qty     int       `json:"qty"`
	Price   float64   `json:"price"`
	OrderID string    `json:"order_id"`
	Reason  string    `json:"reason,omitempty"`
	PnL     float64   `json:"pnl"`
	PnLPct  float64   `json:"pnl_pct"`
}

func (e Entry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("time", e.Time)
	if e.CycleID != "" {
		enc.AddString("cycle_id", e.CycleID)
	}
	if e.Mode != "" {
		enc.AddString("mode", e.Mode)
	}
	enc.AddString("symbol", e.Symbol)
	enc.AddString("side", e.Side)
	enc.AddInt("qty", e.Qty)
	enc.AddFloat64("price", e.Price)
	enc.AddString("order_id", e.OrderID)
	if e.Reason != "" {
		enc.AddString("reason", e.Reason)
	}
	enc.AddFloat64("pnl", e.PnL)
	enc.AddFloat64("pnl_pct", e.PnLPct)
	return nil
}

// SignalEntry records a strategy signal and whether the risk gate let it through.
type SignalEntry struct {
	At       time.Time `json:"-"`
	Time     string    `json:"time"`
	CycleID  string    `json:"cycle_id,omitempty"`
	Symbol   string    `json:"symbol"`
	Side     string    `json:"side"`
	Reason   string    `json:"reason"`
	Price    float64   `json:"price"`
	Target   float64   `json:"target"`
	Qty      int       `json:"qty"`
	Approved bool      `json:"approved"`
	Blocked  string    `json:"blocked,omitempty"`
}

func (e SignalEntry) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("time", e.Time)
	if e.CycleID != "" {
		enc.AddString("cycle_id", e.CycleID)
	}
	enc.AddString("symbol", e.Symbol)
	enc.AddString("side", e.Side)
	enc.AddString("reason", e.Reason)
	enc.AddFloat64("price", e.Price)
	enc.AddFloat64("target", e.Target)
	enc.AddInt("qty", e.Qty)
	enc.AddBool("approved", e.Approved)
	if e.Blocked != "" {
		enc.AddString("blocked", e.Blocked)
	}
	return nil
}

// SetLocation sets the exchange timezone used for daily file rollover.
func SetLocation(l *time.Location) {
	mu.Lock()
	defer mu.Unlock()
	if l != nil {
		loc = l
	}
}

// Location is the timezone daily files roll over in.
func Location() *time.Location {
	mu.Lock()
	defer mu.Unlock()
	return loc
}

func LogDir() string {
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

// DailyFilepath is the trade log for the exchange-local day containing t.
func DailyFilepath(t time.Time) string {
	return filepath.Join(LogDir(), t.In(loc).Format("2006-01-02")+".txt")
}

func signalsFilepath(t time.Time) string {
	return filepath.Join(LogDir(), "signals", t.In(loc).Format("2006-01-02")+".txt")
}

func Append(e Entry) error {
	mu.Lock()
	defer mu.Unlock()
	at := stamp(e.At)
	e.Time = at.Format(timeLayout)
	return writeLine(DailyFilepath(at), zap.Inline(e))
}

func AppendSignal(e SignalEntry) error {
	mu.Lock()
	defer mu.Unlock()
	at := stamp(e.At)
	e.Time = at.Format(timeLayout)
	return writeLine(signalsFilepath(at), zap.Inline(e))
}

// ReadDay returns the fills recorded for the exchange-local day containing t.
// A missing file yields no entries and no error.
func ReadDay(t time.Time) ([]Entry, error) {
	mu.Lock()
	p := DailyFilepath(t)
	mu.Unlock()

	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, sc.Err()
}

func stamp(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	return t.In(loc)
}

// writeLine appends one JSON object per line using a bare zap encoder
// (no level, message or timestamp keys of its own).
func writeLine(path string, f zap.Field) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	encCfg := zapcore.EncoderConfig{
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(file), zapcore.InfoLevel)
	zl := zap.New(core)
	zl.Info("", f)
	return zl.Sync()
}

// CompressOlder gzips trade and signal logs older than retentionDays.
func CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(LogDir(), func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".txt" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err == nil {
			_ = os.Remove(p)
		}
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	if _, err := io.Copy(gw, in); err != nil {
		_ = gw.Close()
		_ = out.Close()
		return err
	}
	if err := gw.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
