package ck3melt

import (
	"fmt"
	"strconv"

	"github.com/condor/ck3save/pkg/ck3bin"
	"github.com/condor/ck3save/pkg/ck3date"
	"github.com/condor/ck3save/pkg/ck3errors"
	"github.com/condor/ck3save/pkg/ck3flavor"
	"github.com/condor/ck3save/pkg/ck3text"
)

type quoteMode int

const (
	quoteInactive quoteMode = iota
	quoteUnquoteAll
)

type blockKind int

const (
	blockInactive blockKind = iota
	blockAlive
	blockAiStrategies
)

// unquoteByIdentifier names identifiers whose container's children must
// always be emitted unquoted, regardless of their wire Quoted tag. The
// version-dependent subset (save_game_version, color1..5, etc.) is
// asked of ck3flavor directly.
var unquoteByIdentifier = map[string]bool{
	"settings":   true,
	"setting":    true,
	"perks":      true,
	"ethnicities": true,
	"languages":  true,
}

var knownNumberIdentifiers = map[string]bool{
	"seed":          true,
	"random_count": true,
}

var reencodeIdentifiers = map[string]bool{
	"vassal_power_value": true,
	"budget_war_chest":   true,
	"budget_short_term":  true,
	"budget_long_term":   true,
	"budget_reserved":    true,
	"damage_last_tick":   true,
}

// rewriter drives the binary-to-text rewrite state machine over a
// fully materialized token slice.
type rewriter struct {
	melter *Melter
	tokens []ck3bin.Token
	flavor ck3flavor.Flavor
	w      *ck3text.Writer
	doc    *MeltedDocument

	quoteStack []quoteMode
	blockStack []blockKind

	queuedQuote quoteMode
	queuedBlock blockKind

	knownNumber bool
	knownDate   bool
	reencode    bool
}

func (r *rewriter) currentQuoteMode() quoteMode {
	if len(r.quoteStack) == 0 {
		return quoteInactive
	}
	return r.quoteStack[len(r.quoteStack)-1]
}

func (r *rewriter) currentBlock() blockKind {
	if len(r.blockStack) == 0 {
		return blockInactive
	}
	return r.blockStack[len(r.blockStack)-1]
}

func (r *rewriter) run() error {
	i := 0
	for i < len(r.tokens) {
		tok := r.tokens[i]

		switch tok.Kind {
		case ck3bin.KindOpen:
			qm := r.queuedQuote
			if qm == quoteInactive && r.currentQuoteMode() == quoteUnquoteAll {
				qm = quoteUnquoteAll
			}
			r.quoteStack = append(r.quoteStack, qm)
			r.queuedQuote = quoteInactive
			r.blockStack = append(r.blockStack, r.queuedBlock)
			r.queuedBlock = blockInactive
			// A container value also consumes and drops a latched
			// known_number/known_date, which only ever applies to a
			// scalar I32 value directly.
			r.knownNumber = false
			r.knownDate = false
			if err := r.w.Open(); err != nil {
				return err
			}
			i++
			continue

		case ck3bin.KindClose:
			if len(r.quoteStack) == 0 {
				return ck3errors.NewParse("unbalanced close while melting", int64(i))
			}
			r.quoteStack = r.quoteStack[:len(r.quoteStack)-1]
			r.blockStack = r.blockStack[:len(r.blockStack)-1]
			if err := r.w.Close(); err != nil {
				return err
			}
			i++
			continue

		case ck3bin.KindEqual:
			return ck3errors.NewParse("unexpected equal token while melting", int64(i))

		default:
			isKey := i+1 < len(r.tokens) && r.tokens[i+1].Kind == ck3bin.KindEqual
			if isKey {
				next, err := r.handleKey(i)
				if err != nil {
					return err
				}
				i = next
				continue
			}
			if err := r.writeValue(tok); err != nil {
				return err
			}
			i++
		}
	}
	return nil
}

// handleKey processes the key token at i (whose successor is Equal)
// and returns the index of the following value token, or, when the key
// and its value are suppressed, the index just past that value.
func (r *rewriter) handleKey(i int) (int, error) {
	tok := r.tokens[i]
	name, resolved := r.resolveName(tok)

	if !resolved {
		switch r.melter.OnFailedResolve {
		case PolicyError:
			return 0, ck3errors.NewUnknownToken(tok.ID)
		case PolicyIgnore:
			r.doc.UnknownTokens[tok.ID] = true
			return r.skipValueAt(i + 2)
		default:
			r.doc.UnknownTokens[tok.ID] = true
			name = fmt.Sprintf("__unknown_0x%x", tok.ID)
		}
	}

	if !r.melter.Verbatim && (name == "ironman" || name == "ironman_manager") {
		return r.skipValueAt(i + 2)
	}

	if knownNumberIdentifiers[name] {
		r.knownNumber = true
	}
	if name == "birth" {
		r.knownDate = true
	}
	if r.flavor.NeedsFloatReencode() && (reencodeIdentifiers[name] || (name == "gold" && r.currentBlock() == blockAlive)) {
		r.reencode = true
	}

	if unquoteByIdentifier[name] || r.flavor.UnquoteIdentifier(name) || (name == "perk" && r.currentBlock() == blockAlive) {
		r.queuedQuote = quoteUnquoteAll
	}
	switch name {
	case "alive_data":
		r.queuedBlock = blockAlive
	case "ai_strategies":
		r.queuedBlock = blockAiStrategies
	}

	if err := r.w.WriteUnquoted([]byte(name)); err != nil {
		return 0, err
	}
	if err := r.w.Equal(); err != nil {
		return 0, err
	}
	return i + 2, nil
}

// skipValueAt consumes the value starting at i (a scalar or a balanced
// container) without emitting anything, returning the index just past
// it.
func (r *rewriter) skipValueAt(i int) (int, error) {
	if i >= len(r.tokens) {
		return 0, ck3errors.NewParse("missing value while melting", int64(i))
	}
	if r.tokens[i].Kind != ck3bin.KindOpen {
		return i + 1, nil
	}
	depth := 1
	j := i + 1
	for depth > 0 {
		if j >= len(r.tokens) {
			return 0, ck3errors.NewParse("unclosed container while melting", int64(j))
		}
		switch r.tokens[j].Kind {
		case ck3bin.KindOpen:
			depth++
		case ck3bin.KindClose:
			depth--
		}
		j++
	}
	return j, nil
}

// resolveName resolves a key or value token to its textual identifier.
// Quoted/Unquoted tokens used as keys are literal strings; Id tokens go
// through the dictionary.
func (r *rewriter) resolveName(tok ck3bin.Token) (string, bool) {
	switch tok.Kind {
	case ck3bin.KindID:
		if r.melter.Dict == nil {
			return "", false
		}
		return r.melter.Dict.Resolve(tok.ID)
	case ck3bin.KindQuoted, ck3bin.KindUnquoted:
		return string(tok.Bytes), true
	default:
		return "", false
	}
}

func (r *rewriter) writeValue(tok ck3bin.Token) error {
	// known_number/known_date only ever apply to the I32 immediately
	// following the latched key; any other scalar kind consumes and
	// drops the latch rather than leaving it armed for a later I32.
	if tok.Kind != ck3bin.KindI32 {
		r.knownNumber = false
		r.knownDate = false
	}
	switch tok.Kind {
	case ck3bin.KindBool:
		if tok.B {
			return r.w.WriteUnquoted([]byte("yes"))
		}
		return r.w.WriteUnquoted([]byte("no"))

	case ck3bin.KindU32:
		return r.w.WriteUnquoted([]byte(strconv.FormatUint(uint64(tok.U32), 10)))

	case ck3bin.KindU64:
		return r.w.WriteUnquoted([]byte(strconv.FormatUint(tok.U64, 10)))

	case ck3bin.KindI64:
		return r.w.WriteUnquoted([]byte(strconv.FormatInt(tok.I64, 10)))

	case ck3bin.KindI32:
		return r.writeI32(tok.I32)

	case ck3bin.KindF32:
		f := r.flavor.DecodeF32(tok.F32Bits)
		return r.w.WriteUnquoted([]byte(strconv.FormatFloat(float64(f), 'f', -1, 32)))

	case ck3bin.KindF64:
		f := r.flavor.DecodeF64(tok.F64Bits)
		if r.reencode {
			f = ck3flavor.ReencodeFloat(f)
		}
		r.reencode = false
		return r.w.WriteUnquoted([]byte(strconv.FormatFloat(f, 'f', -1, 64)))

	case ck3bin.KindQuoted:
		if r.currentQuoteMode() == quoteUnquoteAll {
			return r.w.WriteUnquoted(tok.Bytes)
		}
		return r.w.WriteQuoted(tok.Bytes)

	case ck3bin.KindUnquoted:
		return r.w.WriteUnquoted(tok.Bytes)

	case ck3bin.KindRgb:
		return r.w.WriteRgb(tok.Rgb.R, tok.Rgb.G, tok.Rgb.B)

	case ck3bin.KindID:
		name, ok := r.resolveName(tok)
		if !ok {
			if r.melter.OnFailedResolve == PolicyError {
				return ck3errors.NewUnknownToken(tok.ID)
			}
			r.doc.UnknownTokens[tok.ID] = true
			name = fmt.Sprintf("__unknown_0x%x", tok.ID)
		}
		return r.w.WriteUnquoted([]byte(name))

	default:
		return ck3errors.NewParse("unexpected token kind as value", 0)
	}
}

func (r *rewriter) writeI32(v int32) error {
	if r.currentBlock() == blockAiStrategies || r.knownNumber {
		r.knownNumber = false
		return r.w.WriteUnquoted([]byte(strconv.FormatInt(int64(v), 10)))
	}
	if r.knownDate {
		r.knownDate = false
		d, ok := ck3date.FromHours(v)
		if !ok {
			if r.melter.OnFailedResolve == PolicyError {
				return ck3errors.NewInvalidDate(v)
			}
			return r.w.WriteUnquoted([]byte(strconv.FormatInt(int64(v), 10)))
		}
		return r.w.WriteUnquoted([]byte(d.String()))
	}
	if ck3date.IsDate(v) {
		if d, ok := ck3date.FromHours(v); ok {
			return r.w.WriteUnquoted([]byte(d.String()))
		}
	}
	return r.w.WriteUnquoted([]byte(strconv.FormatInt(int64(v), 10)))
}
