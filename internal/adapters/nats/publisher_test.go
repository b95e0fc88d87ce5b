package natsadapter

import (
	"testing"

	"github.com/samirrijal/mapview/internal/core/domain"
)

func TestSessionSubject(t *testing.T) {
	got := SessionSubject("6f1c", domain.EventRoute)
	if got != "mapview.session.6f1c.route" {
		t.Errorf("unexpected subject %q", got)
	}
	if w := SessionWildcard("6f1c"); w != "mapview.session.6f1c.>" {
		t.Errorf("unexpected wildcard %q", w)
	}
}
