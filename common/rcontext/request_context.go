package rcontext

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/t2bot/synthkit/common/config"
)

func Initial() RequestContext {
	return New(context.Background(), logrus.WithFields(logrus.Fields{"nocontext": true}), config.Get())
}

func New(ctx context.Context, log *logrus.Entry, cfg *config.MainConfig) RequestContext {
	if cfg == nil {
		def := config.NewDefaultMainConfig()
		cfg = &def
	}
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  *cfg,
	}.populate()
}

type RequestContext struct {
	context.Context

	// These are also stored on the context object itself
	Log    *logrus.Entry     // sk.logger
	Config config.MainConfig // sk.config
}

func (c RequestContext) populate() RequestContext {
	c.Context = context.WithValue(c.Context, "sk.logger", c.Log)
	c.Context = context.WithValue(c.Context, "sk.config", c.Config)
	return c
}

func (c RequestContext) ReplaceLogger(log *logrus.Entry) RequestContext {
	ctx := context.WithValue(c.Context, "sk.logger", log)
	return RequestContext{
		Context: ctx,
		Log:     log,
		Config:  c.Config,
	}
}

func (c RequestContext) LogWithFields(fields logrus.Fields) RequestContext {
	return c.ReplaceLogger(c.Log.WithFields(fields))
}

func (c RequestContext) WithContext(ctx context.Context) RequestContext {
	return RequestContext{
		Context: ctx,
		Log:     c.Log,
		Config:  c.Config,
	}.populate()
}
