package coords

import (
	"fmt"
	"regexp"
	"strconv"
)

// Coordinate is a map position in the device's integer units.
type Coordinate struct {
	X int
	Y int
}

// String formats the coordinate the way the map program's goto box expects it.
func (c Coordinate) String() string {
	return strconv.Itoa(c.X) + "," + strconv.Itoa(c.Y)
}

// Parser locates the X and Y markers in free-form device text.
//
// A marker is a literal label immediately followed by one or more decimal
// digits. Each marker is searched independently anywhere in the line.
type Parser struct {
	xLabel string
	yLabel string
	xRe    *regexp.Regexp
	yRe    *regexp.Regexp
}

func NewParser(xLabel, yLabel string) (*Parser, error) {
	if xLabel == "" {
		return nil, fmt.Errorf("x label is empty")
	}
	if yLabel == "" {
		return nil, fmt.Errorf("y label is empty")
	}
	if xLabel == yLabel {
		return nil, fmt.Errorf("x and y labels must differ")
	}
	return &Parser{
		xLabel: xLabel,
		yLabel: yLabel,
		xRe:    regexp.MustCompile(regexp.QuoteMeta(xLabel) + `(\d+)`),
		yRe:    regexp.MustCompile(regexp.QuoteMeta(yLabel) + `(\d+)`),
	}, nil
}

// DefaultParser matches the "startx=" / "starty=" markers printed by the
// microcontroller sketch.
func DefaultParser() *Parser {
	p, err := NewParser("startx=", "starty=")
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Parser) findX(line string) (int, bool) { return findInt(p.xRe, line) }
func (p *Parser) findY(line string) (int, bool) { return findInt(p.yRe, line) }

func findInt(re *regexp.Regexp, line string) (int, bool) {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	// Digit runs too long for int are treated like a miss.
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return v, true
}

// Update reports which fields a single line set.
type Update struct {
	X    int
	Y    int
	SetX bool
	SetY bool
}

// Changed reports whether the line touched either field.
func (u Update) Changed() bool { return u.SetX || u.SetY }

// Tracker accumulates the most recent X and Y values across lines.
//
// Values are never cleared: a field set by an earlier line stays valid until a
// later line overwrites it.
type Tracker struct {
	parser *Parser

	x   int
	y   int
	xOK bool
	yOK bool
}

func NewTracker(p *Parser) *Tracker {
	if p == nil {
		p = DefaultParser()
	}
	return &Tracker{parser: p}
}

// Apply scans line for both markers, overwriting whichever it finds. The
// returned bool is true when both fields are present after the update,
// regardless of whether this line changed anything.
func (t *Tracker) Apply(line string) (Update, bool) {
	var u Update
	if v, ok := t.parser.findX(line); ok {
		t.x = v
		t.xOK = true
		u.X, u.SetX = v, true
	}
	if v, ok := t.parser.findY(line); ok {
		t.y = v
		t.yOK = true
		u.Y, u.SetY = v, true
	}
	return u, t.Ready()
}

// Ready reports whether both fields are present.
func (t *Tracker) Ready() bool {
	return t.xOK && t.yOK
}

// Coordinate returns the current pair; ok is false until both fields are set.
func (t *Tracker) Coordinate() (Coordinate, bool) {
	if !t.Ready() {
		return Coordinate{}, false
	}
	return Coordinate{X: t.x, Y: t.y}, true
}

// X returns the stored X value and whether it has been set.
func (t *Tracker) X() (int, bool) { return t.x, t.xOK }

// Y returns the stored Y value and whether it has been set.
func (t *Tracker) Y() (int, bool) { return t.y, t.yOK }
