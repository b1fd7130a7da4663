package surface

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/san-kum/cosim/internal/cosim"
)

// Lines reads one update per line, either "value" for the default input or
// "ref=value". Blank lines and lines starting with # are ignored, malformed
// lines are logged and skipped.
type Lines struct {
	r       io.Reader
	ref     cosim.ValueRef
	mailbox *cosim.Mailbox
	logger  *zap.Logger
}

func NewLines(r io.Reader, ref cosim.ValueRef, mb *cosim.Mailbox, logger *zap.Logger) *Lines {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Lines{r: r, ref: ref, mailbox: mb, logger: logger}
}

// Run reads until EOF or ctx is done. At EOF the mailbox is closed.
func (l *Lines) Run(ctx context.Context) error {
	sc := bufio.NewScanner(l.r)
	n := 0
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := ParseUpdate(line, l.ref)
		if err != nil {
			l.logger.Warn("skipping input line", zap.Int("line", n), zap.Error(err))
			continue
		}
		l.mailbox.Send(u)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	l.mailbox.Close()
	return nil
}

// ParseUpdate parses "value" or "ref=value".
func ParseUpdate(s string, defaultRef cosim.ValueRef) (cosim.ParameterUpdate, error) {
	u := cosim.ParameterUpdate{Ref: defaultRef}
	val := s
	if before, after, ok := strings.Cut(s, "="); ok {
		ref, err := strconv.ParseUint(strings.TrimSpace(before), 10, 32)
		if err != nil {
			return u, fmt.Errorf("bad value reference %q", before)
		}
		u.Ref = cosim.ValueRef(ref)
		val = after
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
	if err != nil || !finite(v) {
		return u, fmt.Errorf("bad value %q", val)
	}
	u.Value = v
	return u, nil
}
