// CLAUDE:SUMMARY Double Metaphone encoding, match thresholds and the pairwise phonetic comparator.
package names

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/antzucaro/matchr"
)

// Keys is the pair of phonetic codes produced for one encoded string.
// Secondary may equal Primary or be empty.
type Keys struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Encoder maps a word to its phonetic keys. Implementations must be pure
// and total.
type Encoder func(word string) Keys

// DoubleMetaphone is the default Encoder. Its codes keep their full length,
// so "ledzeppelin" encodes as LTSPLN.
func DoubleMetaphone(word string) Keys {
	p, s := doubleMetaphone(word)
	return Keys{Primary: p, Secondary: s}
}

// DoubleMetaphone4 is the classic variant whose codes stop at four letters.
// Long probes collapse onto their first four sounds: christinerobbins and
// christopherrobinson both encode as KRST.
func DoubleMetaphone4(word string) Keys {
	p, s := matchr.DoubleMetaphone(word)
	return Keys{Primary: p, Secondary: s}
}

var encoders = map[string]Encoder{
	"double_metaphone":   DoubleMetaphone,
	"double_metaphone_4": DoubleMetaphone4,
}

// EncoderByName returns the encoder registered as name. An empty name means
// DoubleMetaphone.
func EncoderByName(name string) (Encoder, error) {
	if name == "" {
		return DoubleMetaphone, nil
	}
	enc, ok := encoders[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown encoder %q", ErrInvalidArgument, name)
	}
	return enc, nil
}

// Threshold selects which key slots are compared.
// Strong is the narrowest rule, Weak the broadest.
type Threshold int

const (
	Weak Threshold = iota
	Normal
	Strong
)

var thresholdNames = [...]string{"weak", "normal", "strong"}

// Valid reports whether t is one of the three thresholds.
func (t Threshold) Valid() bool {
	return t >= Weak && t <= Strong
}

func (t Threshold) String() string {
	if !t.Valid() {
		return fmt.Sprintf("Threshold(%d)", int(t))
	}
	return thresholdNames[t]
}

// MarshalText implements encoding.TextMarshaler.
func (t Threshold) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: threshold %d", ErrInvalidArgument, int(t))
	}
	return []byte(thresholdNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. It takes a name or a
// digit, as ParseThresholdValue does for strings.
func (t *Threshold) UnmarshalText(text []byte) error {
	v, err := ParseThresholdValue(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseThreshold parses "weak", "normal" or "strong", case-insensitively.
func ParseThreshold(s string) (Threshold, error) {
	for i, name := range thresholdNames {
		if strings.EqualFold(s, name) {
			return Threshold(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown threshold %q", ErrInvalidArgument, s)
}

// ThresholdFromInt maps 0, 1, 2 to Weak, Normal, Strong.
func ThresholdFromInt(i int) (Threshold, error) {
	t := Threshold(i)
	if !t.Valid() {
		return 0, fmt.Errorf("%w: unknown threshold %d", ErrInvalidArgument, i)
	}
	return t, nil
}

// ParseThresholdValue coerces a loosely typed transport value (a Threshold,
// an integer, an integral float64 as decoded from JSON, or a string holding a
// name or a digit) into a Threshold.
func ParseThresholdValue(v any) (Threshold, error) {
	switch x := v.(type) {
	case Threshold:
		if !x.Valid() {
			return 0, fmt.Errorf("%w: unknown threshold %d", ErrInvalidArgument, int(x))
		}
		return x, nil
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(x)); err == nil {
			return ThresholdFromInt(i)
		}
		return ParseThreshold(x)
	case int:
		return ThresholdFromInt(x)
	case int32:
		return ThresholdFromInt(int(x))
	case int64:
		return ThresholdFromInt(int(x))
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("%w: threshold %v is not an integer", ErrInvalidArgument, x)
		}
		return ThresholdFromInt(int(x))
	default:
		return 0, fmt.Errorf("%w: threshold of type %T", ErrInvalidArgument, v)
	}
}

// Compare reports whether two key pairs match under t:
//
//	Weak:   k1.Secondary == k2.Secondary
//	Normal: k1.Primary == k2.Secondary or k1.Secondary == k2.Primary
//	Strong: k1.Primary == k2.Primary
//
// An empty key never matches, not even another empty key.
func Compare(k1, k2 Keys, t Threshold) bool {
	switch t {
	case Weak:
		return keyEqual(k1.Secondary, k2.Secondary)
	case Normal:
		return keyEqual(k1.Primary, k2.Secondary) || keyEqual(k1.Secondary, k2.Primary)
	case Strong:
		return keyEqual(k1.Primary, k2.Primary)
	}
	return false
}

func keyEqual(a, b string) bool {
	return a != "" && a == b
}

// Comparator judges whether two names sound alike.
type Comparator struct {
	encode Encoder
}

// NewComparator returns a Comparator using enc, or DoubleMetaphone when enc is nil.
func NewComparator(enc Encoder) *Comparator {
	if enc == nil {
		enc = DoubleMetaphone
	}
	return &Comparator{encode: enc}
}

// Encode returns the phonetic keys of word.
func (c *Comparator) Encode(word string) Keys {
	return c.encode(word)
}

// IsMatch encodes both names as given and compares them under t.
// Names are not normalized; callers wanting that run Normalize first.
func (c *Comparator) IsMatch(name1, name2 string, t Threshold) (bool, error) {
	if !t.Valid() {
		return false, fmt.Errorf("%w: unknown threshold %d", ErrInvalidArgument, int(t))
	}
	return Compare(c.encode(name1), c.encode(name2), t), nil
}

// MatchNames is IsMatch for optional input. A nil name is an invalid argument.
func (c *Comparator) MatchNames(name1, name2 *string, t Threshold) (bool, error) {
	if name1 == nil || name2 == nil {
		return false, fmt.Errorf("%w: neither name can be absent", ErrInvalidArgument)
	}
	return c.IsMatch(*name1, *name2, t)
}
