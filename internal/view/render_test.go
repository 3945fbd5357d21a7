package view

import (
	"reflect"
	"testing"

	"github.com/nodesight/nodesight/internal/testutil"
	"github.com/nodesight/nodesight/pkg/models"
)

func TestRenderCardTexts(t *testing.T) {
	tests := []struct {
		name          string
		node          models.Node
		wantClass     string
		wantLatency   string
		wantTelemetry string
		wantBadges    []string
	}{
		{
			"online ping only",
			testutil.NewNode("a", testutil.WithLatency(42)),
			CardOnline, "42 ms", "Ping Only", nil,
		},
		{
			"online with telemetry",
			testutil.NewNode("a", testutil.WithLatency(42), testutil.WithTelemetry(1200, 800)),
			CardOnline, "42 ms", "rx 1200 K / tx 800 K", nil,
		},
		{
			"offline with last seen",
			testutil.NewNode("a", testutil.Offline("2026-01-15 09:00:00")),
			CardOffline, "last seen 2026-01-15 09:00:00", "Ping Only", nil,
		},
		{
			"offline never seen",
			testutil.NewNode("a", testutil.Offline("")),
			CardOffline, "last seen never", "Ping Only", nil,
		},
		{
			"offline telemetry stopped",
			func() models.Node {
				n := testutil.NewNode("a", testutil.WithTelemetry(100, 50))
				n.Online = false
				n.LatencyMs = nil
				return n
			}(),
			CardOffline, "last seen never", "Stopped", nil,
		},
		{
			"high latency",
			testutil.NewNode("a", testutil.WithLatency(250)),
			CardLatency, "250 ms", "Ping Only", []string{BadgeHighLatency},
		},
		{
			"high traffic",
			testutil.NewNode("a", testutil.WithLatency(10), testutil.WithTelemetry(99999, 10)),
			CardTraffic, "10 ms", "rx 99999 K / tx 10 K", []string{BadgeHighTraffic},
		},
		{
			"both issues stack badges but class follows latency",
			testutil.NewNode("a", testutil.WithLatency(250), testutil.WithTelemetry(99999, 10)),
			CardLatency, "250 ms", "rx 99999 K / tx 10 K", []string{BadgeHighLatency, BadgeHighTraffic},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := RenderCard(tc.node, testThresholds, ModeNormal)
			if c.CardClass != tc.wantClass {
				t.Errorf("class = %q, want %q", c.CardClass, tc.wantClass)
			}
			if c.Latency != tc.wantLatency {
				t.Errorf("latency = %q, want %q", c.Latency, tc.wantLatency)
			}
			if c.Telemetry != tc.wantTelemetry {
				t.Errorf("telemetry = %q, want %q", c.Telemetry, tc.wantTelemetry)
			}
			if !reflect.DeepEqual(c.Badges, tc.wantBadges) {
				t.Errorf("badges = %v, want %v", c.Badges, tc.wantBadges)
			}
		})
	}
}

func TestRenderCardDefaults(t *testing.T) {
	n := testutil.NewNode("a", testutil.WithType("Router"), testutil.WithHost("10.1.1.1"))
	n.Icon = ""

	c := RenderCard(n, testThresholds, ModeDetailed)

	if c.Icon != "fa-server" {
		t.Errorf("icon = %q, want default", c.Icon)
	}
	if c.Subtitle != "Router - 10.1.1.1" {
		t.Errorf("subtitle = %q", c.Subtitle)
	}
	if !c.ShowChart {
		t.Error("detailed mode card must show a chart")
	}
	if RenderCard(n, testThresholds, ModeMinimal).ShowChart {
		t.Error("minimal mode card must not show a chart")
	}
}

func TestGroupKeyFor(t *testing.T) {
	located := testutil.NewNode("a", testutil.WithLocation("Jawa", "Bandung"))
	if got := GroupKeyFor(located); got != (GroupHeader{Province: "Jawa", City: "Bandung"}) {
		t.Errorf("located group = %+v", got)
	}

	bare := testutil.NewNode("b")
	if got := GroupKeyFor(bare); got != (GroupHeader{Province: GroupOtherProvince, City: GroupUnknownCity}) {
		t.Errorf("bare group = %+v", got)
	}

	empty := ""
	half := testutil.NewNode("c", testutil.WithLocation("Jawa", "Bandung"))
	half.City = &empty
	if got := GroupKeyFor(half); got != (GroupHeader{Province: "Jawa", City: GroupUnknownCity}) {
		t.Errorf("half-located group = %+v", got)
	}
}

func TestCardViewEqual(t *testing.T) {
	n := testutil.NewNode("a", testutil.WithLatency(50))
	base := RenderCard(n, testThresholds, ModeNormal)

	if !base.Equal(RenderCard(n, testThresholds, ModeNormal)) {
		t.Error("identical renders must compare equal")
	}

	changed := testutil.NewNode("a", testutil.WithLatency(250))
	if base.Equal(RenderCard(changed, testThresholds, ModeNormal)) {
		t.Error("changed latency must compare unequal")
	}
}
