package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

type fixtures struct {
	Hand  *schema.Class
	Thumb *schema.Class
}

func defineFixtures(t *testing.T) fixtures {
	t.Helper()
	r := schema.NewRegistry()

	var f fixtures
	f.Hand = r.MustDefine("Hand",
		schema.Primary("handId"),
		schema.Attr("name"),
		schema.HasOne("thumb", func() *schema.Class { return f.Thumb }),
	)
	f.Thumb = r.MustDefine("Thumb",
		schema.Primary("thumbId"),
		schema.Attr("name"),
		schema.HasOne("hand", func() *schema.Class { return f.Hand }),
	)
	return f
}

func newHand(t *testing.T, f fixtures, raw map[string]any) *model.Model {
	t.Helper()
	m, err := model.Hydrate(f.Hand, raw)
	require.NoError(t, err)
	return m
}

func observedLogger() (logging.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return logging.FromZap(zap.New(core)), logs
}
