package ui

import (
	"testing"

	"github.com/sandevgo/airbot/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestRouteBadge(t *testing.T) {
	for _, r := range []core.Route{core.RouteSensor, core.RouteSensorNoData, core.RouteGeneral, core.RouteError} {
		t.Run(string(r), func(t *testing.T) {
			assert.Contains(t, RouteBadge(r, 0.4217), "["+string(r)+" 0.42s]")
		})
	}
}
