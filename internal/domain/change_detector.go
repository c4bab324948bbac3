package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Snapshot is the value of one form section at a point in time.
// Values are primitives, date-like strings, arrays or nested snapshots.
type Snapshot = map[string]any

// DefaultDateFields are the passport-form fields holding calendar dates.
var DefaultDateFields = []string{"dateOfBirth", "issueDate", "travelDate", "returnDate"}

const (
	pathSeparator = " : "
	dateLayout    = "2006-01-02"
)

var dateLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	dateLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// FieldKind tags how a snapshot value takes part in change detection.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldDate
	FieldArray
	FieldNested
)

func (k FieldKind) String() string {
	switch k {
	case FieldDate:
		return "date"
	case FieldArray:
		return "array"
	case FieldNested:
		return "nested"
	default:
		return "scalar"
	}
}

// ChangeDetector compares two snapshots of a named section and describes
// every effective change as an audit note.
type ChangeDetector struct {
	dateFields map[string]struct{}
	clock      func() time.Time
}

// DetectorOption configures a ChangeDetector.
type DetectorOption func(*ChangeDetector)

// WithDateFields replaces the set of field names treated as calendar dates.
func WithDateFields(names ...string) DetectorOption {
	return func(d *ChangeDetector) {
		d.dateFields = make(map[string]struct{}, len(names))
		for _, name := range names {
			d.dateFields[name] = struct{}{}
		}
	}
}

// WithClock sets the time source used to stamp records.
func WithClock(clock func() time.Time) DetectorOption {
	return func(d *ChangeDetector) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// NewChangeDetector builds a detector using DefaultDateFields and time.Now
// unless overridden.
func NewChangeDetector(opts ...DetectorOption) *ChangeDetector {
	d := &ChangeDetector{clock: time.Now}
	WithDateFields(DefaultDateFields...)(d)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Classify reports how the value stored under key is compared.
func (d *ChangeDetector) Classify(key string, value any) FieldKind {
	if _, ok := value.(map[string]any); ok {
		return FieldNested
	}
	if isArray(value) {
		return FieldArray
	}
	if _, ok := d.dateFields[key]; ok {
		return FieldDate
	}
	return FieldScalar
}

// Detect returns the records describing how newData differs from oldData.
// Keys are visited depth-first in ascending order. Keys missing from newData
// are not reported, so removals never produce a record.
func (d *ChangeDetector) Detect(oldData, newData Snapshot, section string) []ChangeRecord {
	if newData == nil {
		return nil
	}
	w := walker{
		detector: d,
		prefix:   strings.ToUpper(section) + pathSeparator,
	}
	w.walk(oldData, newData, nil)
	return w.records
}

type walker struct {
	detector *ChangeDetector
	prefix   string
	records  []ChangeRecord
}

func (w *walker) walk(oldData, newData Snapshot, parent []string) {
	keys := make([]string, 0, len(newData))
	for key := range newData {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := append(parent[:len(parent):len(parent)], key)
		oldValue := oldData[key]
		newValue := newData[key]

		if isFalsy(oldValue) && isFalsy(newValue) {
			continue
		}

		switch w.detector.Classify(key, newValue) {
		case FieldNested:
			oldNested, _ := oldValue.(map[string]any)
			w.walk(oldNested, newValue.(map[string]any), path)
		case FieldArray:
			oldJSON, newJSON := serialize(oldValue), serialize(newValue)
			if oldJSON != newJSON {
				w.emit("Changed field [%s] from %s to %s", humanizePath(path), oldJSON, newJSON)
			}
		case FieldDate:
			oldDate, hadOld := normalizeDate(oldValue)
			newDate, hasNew := normalizeDate(newValue)
			if hadOld == hasNew && oldDate == newDate {
				continue
			}
			if !hadOld {
				w.emit("Added field [%s] as '%s'", humanizePath(path), newDate)
			} else {
				w.emit("Changed field [%s] from '%s' to '%s'", humanizePath(path), oldDate, orNull(newDate, hasNew))
			}
		default:
			if scalarEqual(oldValue, newValue) {
				continue
			}
			if isFalsy(oldValue) {
				w.emit("Added field [%s] as '%s'", humanizePath(path), formatScalar(newValue))
			} else {
				w.emit("Changed field [%s] from '%s' to '%s'", humanizePath(path), formatScalar(oldValue), formatScalar(newValue))
			}
		}
	}
}

func (w *walker) emit(format string, args ...any) {
	w.records = append(w.records, ChangeRecord{
		Note:      w.prefix + fmt.Sprintf(format, args...),
		CreatedAt: w.detector.clock(),
	})
}

func humanizePath(path []string) string {
	segments := make([]string, len(path))
	for i, segment := range path {
		segments[i] = HumanizeField(segment)
	}
	return strings.Join(segments, pathSeparator)
}

func isArray(value any) bool {
	if value == nil {
		return false
	}
	kind := reflect.TypeOf(value).Kind()
	return kind == reflect.Slice || kind == reflect.Array
}

func isFalsy(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return typed == ""
	case bool:
		return !typed
	case time.Time:
		return typed.IsZero()
	case float64:
		if math.IsNaN(typed) {
			return true
		}
	}
	if r, ok := numericValue(value); ok {
		return r.Sign() == 0
	}
	return false
}

// numericValue returns the exact value of a Go or JSON number. json.Number
// is parsed from its text, so integers beyond 2^53 keep every digit.
func numericValue(value any) (*big.Rat, bool) {
	if n, ok := value.(json.Number); ok {
		return new(big.Rat).SetString(n.String())
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return new(big.Rat).SetInt64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return new(big.Rat).SetInt(new(big.Int).SetUint64(rv.Uint())), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return new(big.Rat).SetFloat64(f), true
	}
	return nil, false
}

// formatNumber renders a number in plain decimal notation: integers with
// every digit, fractions in the shortest form that round-trips.
func formatNumber(value any) (string, bool) {
	if n, ok := value.(json.Number); ok {
		r, ok := numericValue(n)
		if !ok {
			return n.String(), true
		}
		if r.IsInt() {
			return r.Num().String(), true
		}
		f, _ := r.Float64()
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), true
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), true
	}
	return "", false
}

func scalarEqual(a, b any) bool {
	if ar, ok := numericValue(a); ok {
		br, ok := numericValue(b)
		return ok && ar.Cmp(br) == 0
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func formatScalar(value any) string {
	switch typed := value.(type) {
	case nil:
		return "null"
	case string:
		return typed
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	}
	if text, ok := formatNumber(value); ok {
		return text
	}
	return fmt.Sprint(value)
}

func serialize(value any) string {
	encoded, err := json.Marshal(canonical(value))
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}

// canonical rewrites every number inside value to the formatNumber form, so
// 1.50, 1.5 and float64(1.5) serialize identically.
func canonical(value any) any {
	switch typed := value.(type) {
	case nil, string, bool:
		return typed
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, item := range typed {
			out[key] = canonical(item)
		}
		return out
	}
	if _, ok := numericValue(value); ok {
		text, _ := formatNumber(value)
		return json.Number(text)
	}
	if isArray(value) {
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return nil
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = canonical(rv.Index(i).Interface())
		}
		return out
	}
	return value
}

// normalizeDate reduces a date-like value to its UTC calendar day.
// Strings that do not parse are compared verbatim.
func normalizeDate(value any) (string, bool) {
	if isFalsy(value) {
		return "", false
	}
	switch typed := value.(type) {
	case time.Time:
		return typed.UTC().Format(dateLayout), true
	case string:
		raw := strings.TrimSpace(typed)
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return parsed.UTC().Format(dateLayout), true
			}
		}
		return raw, true
	}
	if r, ok := numericValue(value); ok {
		millis, _ := r.Float64()
		return time.UnixMilli(int64(millis)).UTC().Format(dateLayout), true
	}
	return fmt.Sprint(value), true
}

func orNull(value string, ok bool) string {
	if !ok {
		return "null"
	}
	return value
}
