package overlay

// DefaultColor is used when neither a palette nor a fallback is configured.
const DefaultColor = "#3388ff"

// Palette hands out overlay colors round robin. A pushed color jumps the
// queue exactly once.
type Palette struct {
	colors   []string
	fallback string
	next     int
	pushed   string
	pending  bool
}

// NewPalette copies colors. An empty fallback means DefaultColor.
func NewPalette(colors []string, fallback string) *Palette {
	if fallback == "" {
		fallback = DefaultColor
	}
	return &Palette{
		colors:   append([]string(nil), colors...),
		fallback: fallback,
	}
}

// NextColor returns the pushed color if one is staged, otherwise the next
// palette entry, otherwise the fallback.
func (p *Palette) NextColor() string {
	if p.pending {
		p.pending = false
		return p.pushed
	}
	if len(p.colors) == 0 {
		return p.fallback
	}
	c := p.colors[p.next%len(p.colors)]
	p.next = (p.next + 1) % len(p.colors)
	return c
}

// PushColor stages c for the next NextColor call. A second push before
// that call replaces the first.
func (p *Palette) PushColor(c string) {
	if c == "" {
		return
	}
	p.pushed = c
	p.pending = true
}
