package capture

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ghalamif/AegisPulse/internal/domain"
)

func TestClickDebounceKeepsLatest(t *testing.T) {
	c, _, _, _ := newTestContext()
	src := NewClickSource()
	src.debounce = 20 * time.Millisecond
	src.Setup(c)
	defer src.Stop()

	src.Click(ClickTarget{Tag: "BUTTON", ID: "first"})
	src.Click(ClickTarget{Tag: "BUTTON", ID: "second"})
	src.Click(ClickTarget{Tag: "BUTTON", ID: "save", Classes: []string{"", "primary", "large"}})

	require.Eventually(t, func() bool { return c.Breadcrumbs.Len() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	crumbs := c.Breadcrumbs.All()
	require.Len(t, crumbs, 1)
	require.Equal(t, domain.BreadcrumbClick, crumbs[0].Type)
	require.Equal(t, "button#save.primary", crumbs[0].Message)
	require.Equal(t, "primary large", crumbs[0].Data["className"])
}

func TestClickIgnoredTargetsAndStop(t *testing.T) {
	c, _, _, _ := newTestContext()
	src := NewClickSource()
	src.debounce = 10 * time.Millisecond
	src.Setup(c)

	src.Click(ClickTarget{Tag: "div", Ignore: true})
	src.Click(ClickTarget{Tag: "span"})
	src.Stop()

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, c.Breadcrumbs.Len())
}

func TestClickRecordsLinkAndTruncatesText(t *testing.T) {
	c, _, _, _ := newTestContext()
	src := NewClickSource()
	src.Setup(c)

	src.record(ClickTarget{Tag: "A", Href: "https://example.com/docs", URL: "https://example.com", Text: strings.Repeat("é", 150)})

	crumb := c.Breadcrumbs.All()[0]
	require.Equal(t, "a", crumb.Message)
	require.Equal(t, "https://example.com/docs", crumb.Data["url"])
	require.Equal(t, 100, len([]rune(crumb.Data["text"].(string))))
}

func TestClickMessageWithoutTag(t *testing.T) {
	require.Equal(t, "element#x", clickMessage("", ClickTarget{ID: "x"}))
}
