// Package captions implements the caption display buffer: a deduplicating,
// word-aligned, multi-line text model driven by streaming recognizer
// fragments. It owns no concurrency primitives of its own — it is mutated
// exclusively by the renderer-side goroutine that receives fragments from
// the inference pipeline.
package captions

import (
	"strings"
	"time"
)

const minOverlapChars = 4

// Line is one displayed caption line with its own expiry clock.
type Line struct {
	Text       string
	LastActive time.Time
}

// Buffer is the fill-and-shift caption display model described by the
// pipeline's rendering contract: words fill the bottom line left to right,
// full buffers evict the oldest line, and idle lines expire one at a time.
type Buffer struct {
	lines          []Line
	maxLines       int
	maxCharsPerLine int
	expireSecs     int
	lastTail       string
	now            func() time.Time
}

// Option configures a Buffer at construction.
type Option func(*Buffer)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(b *Buffer) { b.now = now }
}

// New constructs a caption buffer with the given display geometry.
// expireSecs of 0 is coerced to the default of 8, matching the config
// loader's own coercion rule.
func New(maxLines, maxCharsPerLine, expireSecs int, opts ...Option) *Buffer {
	if expireSecs == 0 {
		expireSecs = 8
	}
	b := &Buffer{
		maxLines:        maxLines,
		maxCharsPerLine: maxCharsPerLine,
		expireSecs:      expireSecs,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// UpdateConfig hot-reloads display geometry without clearing existing
// lines. expireSecs of 0 coerces to 8.
func (b *Buffer) UpdateConfig(maxCharsPerLine, expireSecs int) {
	if expireSecs == 0 {
		expireSecs = 8
	}
	b.maxCharsPerLine = maxCharsPerLine
	b.expireSecs = expireSecs
}

// Push ingests one recognizer fragment, applying dedup and fill-and-shift
// placement. The fragment's leading-whitespace convention is authoritative
// for word-boundary detection and must reach Push untrimmed.
func (b *Buffer) Push(fragment string) {
	fragment = b.dedup(fragment)
	if fragment == "" {
		return
	}

	isNewWord := len(fragment) > 0 && (fragment[0] == ' ' || len(b.lines) == 0)

	if isNewWord {
		b.placeWords(fragment)
	} else {
		b.placeContinuation(fragment)
	}

	b.touchBottom()
	b.rebuildTail()
}

func (b *Buffer) dedup(fragment string) string {
	if fragment == "" || b.lastTail == "" {
		return fragment
	}

	tail := b.lastTail
	maxOverlap := len(fragment)
	if len(tail) < maxOverlap {
		maxOverlap = len(tail)
	}

	trimmedFrag := strings.TrimLeft(fragment, " ")
	leadSpace := strings.HasPrefix(fragment, " ")

	for n := maxOverlap; n >= minOverlapChars; n-- {
		if len(trimmedFrag) < n {
			continue
		}
		tailSuffix := strings.ToLower(tail[len(tail)-n:])
		candidate := strings.ToLower(trimmedFrag[:n])
		if candidate != tailSuffix {
			continue
		}
		remainder := trimmedFrag[n:]
		if leadSpace && remainder != "" {
			remainder = " " + strings.TrimLeft(remainder, " ")
		} else if leadSpace {
			remainder = ""
		}
		return remainder
	}
	return fragment
}

func (b *Buffer) placeWords(fragment string) {
	words := strings.Fields(fragment)
	for _, word := range words {
		if len(b.lines) == 0 {
			b.appendLine(word)
			continue
		}
		bottom := &b.lines[len(b.lines)-1]
		if bottom.Text == "" {
			bottom.Text = word
			continue
		}
		if len(bottom.Text)+1+len(word) <= b.maxCharsPerLine {
			bottom.Text = bottom.Text + " " + word
			continue
		}
		b.appendLine(word)
	}
}

func (b *Buffer) placeContinuation(fragment string) {
	if len(b.lines) == 0 {
		b.appendLine(fragment)
		return
	}

	bottom := &b.lines[len(b.lines)-1]
	joined := bottom.Text + fragment
	if len(joined) <= b.maxCharsPerLine {
		bottom.Text = joined
		return
	}

	lastSpace := strings.LastIndex(bottom.Text, " ")
	if lastSpace == -1 {
		b.appendLine(fragment)
		return
	}

	partial := bottom.Text[lastSpace+1:]
	bottom.Text = bottom.Text[:lastSpace]
	b.appendLine(partial + fragment)
}

// appendLine adds a new bottom line, evicting the oldest if at capacity.
func (b *Buffer) appendLine(text string) {
	if len(b.lines) >= b.maxLines {
		b.lines = b.lines[1:]
	}
	b.lines = append(b.lines, Line{Text: text, LastActive: b.now()})
}

func (b *Buffer) touchBottom() {
	if len(b.lines) == 0 {
		return
	}
	b.lines[len(b.lines)-1].LastActive = b.now()
}

func (b *Buffer) rebuildTail() {
	joined := b.DisplayText()
	const tailWindow = 60
	if len(joined) <= tailWindow {
		b.lastTail = joined
		return
	}
	b.lastTail = joined[len(joined)-tailWindow:]
}

// ExpireTick removes at most one oldest line whose LastActive age exceeds
// expireSecs. Returns whether a line was removed.
func (b *Buffer) ExpireTick() bool {
	if len(b.lines) == 0 {
		return false
	}
	oldest := b.lines[0]
	if b.now().Sub(oldest.LastActive) <= time.Duration(b.expireSecs)*time.Second {
		return false
	}
	b.lines = b.lines[1:]
	b.rebuildTail()
	return true
}

// DisplayText joins all lines with a single newline separator.
func (b *Buffer) DisplayText() string {
	texts := make([]string, len(b.lines))
	for i, l := range b.lines {
		texts[i] = l.Text
	}
	return strings.Join(texts, "\n")
}

// LineCount reports the current number of lines, for capacity assertions.
func (b *Buffer) LineCount() int {
	return len(b.lines)
}
