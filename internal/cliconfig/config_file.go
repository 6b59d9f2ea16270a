package cliconfig

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/oneshot/internal/domain"
)

// FileConfig mirrors Config in its persisted form. Pointers tell a missing
// field apart from a zero value.
type FileConfig struct {
	Server       *string       `json:"server" toml:"server"`
	InitialDelay *FileDuration `json:"initial_delay" toml:"initial_delay"`
}

// FileDuration is a duration split into whole seconds and the sub-second
// remainder in nanoseconds.
type FileDuration struct {
	Secs  *uint64 `json:"secs" toml:"secs"`
	Nanos *uint32 `json:"nanos" toml:"nanos"`
}

const nanosPerSec = uint64(time.Second)

// maxSecs is the largest whole-second count a time.Duration can hold.
var maxSecs = uint64(math.MaxInt64) / nanosPerSec

// NewFileConfig converts cfg to its persisted form.
func NewFileConfig(cfg Config) FileConfig {
	server := cfg.Server.String()
	secs := uint64(cfg.InitialDelay / time.Second)
	nanos := uint32(cfg.InitialDelay % time.Second)
	return FileConfig{
		Server:       &server,
		InitialDelay: &FileDuration{Secs: &secs, Nanos: &nanos},
	}
}

// Config validates fc and converts it. Failures are *domain.ConfigError
// of kind ConfigSchema (missing field) or ConfigValue (unusable value).
func (fc FileConfig) Config(path string) (Config, error) {
	var cfg Config

	if fc.Server == nil {
		return cfg, missingField(path, "server")
	}
	if fc.InitialDelay == nil {
		return cfg, missingField(path, "initial_delay")
	}
	if fc.InitialDelay.Secs == nil {
		return cfg, missingField(path, "initial_delay.secs")
	}
	if fc.InitialDelay.Nanos == nil {
		return cfg, missingField(path, "initial_delay.nanos")
	}

	server, err := netip.ParseAddrPort(*fc.Server)
	if err != nil {
		return cfg, &domain.ConfigError{Kind: domain.ConfigValue, Path: path, Field: "server", Err: err}
	}

	delay, err := fc.InitialDelay.Duration()
	if err != nil {
		return cfg, &domain.ConfigError{Kind: domain.ConfigValue, Path: path, Field: "initial_delay", Err: err}
	}

	cfg.Server = server
	cfg.InitialDelay = delay
	return cfg, nil
}

// Duration converts d to a time.Duration, rejecting out-of-range values.
func (d FileDuration) Duration() (time.Duration, error) {
	var secs uint64
	var nanos uint32
	if d.Secs != nil {
		secs = *d.Secs
	}
	if d.Nanos != nil {
		nanos = *d.Nanos
	}
	if uint64(nanos) >= nanosPerSec {
		return 0, fmt.Errorf("nanos %d out of range [0, %d)", nanos, nanosPerSec)
	}
	if secs > maxSecs || (secs == maxSecs && uint64(nanos) > uint64(math.MaxInt64)-maxSecs*nanosPerSec) {
		return 0, fmt.Errorf("duration of %d.%09ds overflows", secs, nanos)
	}
	return time.Duration(secs)*time.Second + time.Duration(nanos), nil
}

func missingField(path, field string) error {
	return &domain.ConfigError{Kind: domain.ConfigSchema, Path: path, Field: field, Err: errors.New("missing required field")}
}

// isTOML reports whether path selects the TOML encoding. Anything else is JSON.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadFileConfig reads and strictly decodes the config file at path.
// Unknown fields and trailing data are schema errors.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig

	b, err := os.ReadFile(path)
	if err != nil {
		return fc, &domain.ConfigError{Kind: domain.ConfigUnreadable, Path: path, Err: err}
	}

	if isTOML(path) {
		err = decodeTOML(b, &fc)
	} else {
		err = decodeJSON(b, &fc)
	}
	if err != nil {
		cerr := &domain.ConfigError{Kind: domain.ConfigSchema, Path: path, Err: err}
		var kerr *keyError
		if errors.As(err, &kerr) {
			cerr.Field = kerr.field
		}
		return FileConfig{}, cerr
	}
	return fc, nil
}

// schemaKeys lists the exact keys of each object in the persisted form,
// by dotted path. Decoders match struct fields case-insensitively and let
// a repeated key win, so keys are checked before decoding.
var schemaKeys = map[string][]string{
	"":              {"server", "initial_delay"},
	"initial_delay": {"secs", "nanos"},
}

type keyError struct {
	field string
	msg   string
}

func (e *keyError) Error() string { return fmt.Sprintf("%s field %q", e.msg, e.field) }

func joinKey(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

// keyChecker tracks the keys seen in one object.
type keyChecker struct {
	path string
	seen map[string]bool
}

func newKeyChecker(path string) *keyChecker {
	return &keyChecker{path: path, seen: make(map[string]bool)}
}

func (c *keyChecker) add(key string) error {
	if !slices.Contains(schemaKeys[c.path], key) {
		return &keyError{field: joinKey(c.path, key), msg: "unknown"}
	}
	if c.seen[key] {
		return &keyError{field: joinKey(c.path, key), msg: "duplicate"}
	}
	c.seen[key] = true
	return nil
}

func decodeTOML(b []byte, fc *FileConfig) error {
	var doc map[string]any
	if err := toml.Unmarshal(b, &doc); err != nil {
		return err
	}
	if err := checkTOMLKeys(doc, ""); err != nil {
		return err
	}
	return toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields().Decode(fc)
}

// checkTOMLKeys rejects keys that differ from the schema, including by
// case. The TOML parser already rejects repeated keys.
func checkTOMLKeys(table map[string]any, path string) error {
	c := newKeyChecker(path)
	keys := make([]string, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := c.add(k); err != nil {
			return err
		}
		child := joinKey(path, k)
		if sub, ok := table[k].(map[string]any); ok {
			if _, known := schemaKeys[child]; known {
				if err := checkTOMLKeys(sub, child); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func decodeJSON(b []byte, fc *FileConfig) error {
	if err := checkJSONKeys(json.NewDecoder(bytes.NewReader(b)), ""); err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(fc); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after top-level object")
	}
	return nil
}

// checkJSONKeys walks one value. Objects at schema paths must use the exact
// keys, each at most once. Syntax errors are left to the struct decode.
func checkJSONKeys(dec *json.Decoder, path string) error {
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}

	switch delim {
	case '{':
		_, known := schemaKeys[path]
		c := newKeyChecker(path)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil
			}
			key, _ := tok.(string)
			if known {
				if err := c.add(key); err != nil {
					return err
				}
			}
			if err := checkJSONKeys(dec, joinKey(path, key)); err != nil {
				return err
			}
		}
	case '[':
		for dec.More() {
			if err := checkJSONKeys(dec, path+"[]"); err != nil {
				return err
			}
		}
	default:
		return nil
	}
	_, _ = dec.Token()
	return nil
}

// LoadConfig reads, decodes and validates the config file at path.
func LoadConfig(path string) (Config, error) {
	fc, err := LoadFileConfig(path)
	if err != nil {
		return Config{}, err
	}
	return fc.Config(path)
}

// MarshalFileConfig encodes cfg in the format selected by path.
func MarshalFileConfig(path string, cfg Config) ([]byte, error) {
	fc := NewFileConfig(cfg)
	if isTOML(path) {
		return toml.Marshal(fc)
	}
	b, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// WriteFileConfig creates path and writes cfg to it. It never replaces an
// existing file: if path exists the returned error matches fs.ErrExist.
// A partially written file is removed.
func WriteFileConfig(path string, cfg Config) error {
	data, err := MarshalFileConfig(path, cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("close config: %w", err)
	}
	return nil
}

// EnsureConfig returns the configuration stored at path. When no file
// exists it writes DefaultConfig there and reports created = true; the
// caller is expected to stop without connecting.
func EnsureConfig(path string) (cfg Config, created bool, err error) {
	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
	case errors.Is(statErr, fs.ErrNotExist):
		cfg = DefaultConfig()
		werr := WriteFileConfig(path, cfg)
		if werr == nil {
			return cfg, true, nil
		}
		// Another writer got there first; load what it wrote.
		if !errors.Is(werr, fs.ErrExist) {
			return Config{}, false, &domain.ConfigError{Kind: domain.ConfigUnreadable, Path: path, Err: fmt.Errorf("bootstrap: %w", werr)}
		}
	default:
		return Config{}, false, &domain.ConfigError{Kind: domain.ConfigUnreadable, Path: path, Err: statErr}
	}

	cfg, err = LoadConfig(path)
	return cfg, false, err
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
