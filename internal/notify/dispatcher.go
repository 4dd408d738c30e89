package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"reprieve/internal/logging"
	"reprieve/internal/types"
)

type defaultDispatcher struct {
	sinks  map[types.NotificationMethod]Sink
	logger logging.Logger
}

func NewDispatcher(sinks []Sink, logger logging.Logger) Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	byMethod := map[types.NotificationMethod]Sink{}
	for _, sink := range sinks {
		if sink == nil {
			continue
		}
		byMethod[sink.Method()] = sink
	}
	return &defaultDispatcher{sinks: byMethod, logger: logger}
}

func (d *defaultDispatcher) Dispatch(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error {
	var dispatchErr error
	delivered := false
	for _, method := range settings.Methods {
		ok, err := d.dispatchMethod(ctx, method, event, settings)
		if err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
			continue
		}
		delivered = delivered || ok
	}
	if delivered {
		return nil
	}
	return dispatchErr
}

func (d *defaultDispatcher) dispatchMethod(ctx context.Context, method types.NotificationMethod, event types.NotificationEvent, settings types.NotificationSettings) (bool, error) {
	if method == types.NotificationMethodAuto {
		for _, fallback := range []types.NotificationMethod{types.NotificationMethodDunstify, types.NotificationMethodNotifySend, types.NotificationMethodBell} {
			sink, ok := d.sinks[fallback]
			if !ok || sink == nil {
				continue
			}
			if err := sink.Notify(ctx, event, settings); err == nil {
				return true, nil
			}
		}
		return false, errors.New("no notification sink available for auto")
	}
	sink, ok := d.sinks[method]
	if !ok || sink == nil {
		return false, fmt.Errorf("unknown notification method: %s", method)
	}
	if err := sink.Notify(ctx, event, settings); err != nil {
		return false, err
	}
	return true, nil
}

type logSink struct {
	logger logging.Logger
}

// NewLogSink writes notifications to logger at info level.
func NewLogSink(logger logging.Logger) Sink {
	if logger == nil {
		logger = logging.Nop()
	}
	return logSink{logger: logger}
}

func (logSink) Method() types.NotificationMethod {
	return types.NotificationMethodLog
}

func (s logSink) Notify(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error {
	_, body := Describe(event)
	s.logger.Info("deletion_notification",
		logging.F("trigger", event.Trigger),
		logging.F("scope", event.Scope),
		logging.F("token", event.Token),
		logging.F("count", event.Count),
		logging.F("message", body),
	)
	return nil
}

type commandSink struct {
	method types.NotificationMethod
	binary string
}

func (s commandSink) Method() types.NotificationMethod {
	return s.method
}

func (s commandSink) Notify(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error {
	if _, err := exec.LookPath(s.binary); err != nil {
		return err
	}
	title, body := Describe(event)
	return exec.CommandContext(ctx, s.binary, title, body).Run()
}

type bellSink struct {
	out io.Writer
}

func (bellSink) Method() types.NotificationMethod {
	return types.NotificationMethodBell
}

func (s bellSink) Notify(ctx context.Context, event types.NotificationEvent, settings types.NotificationSettings) error {
	_, err := fmt.Fprint(s.out, "\a")
	return err
}

// DefaultSinks returns every built-in sink. The bell rings on stderr.
func DefaultSinks(logger logging.Logger) []Sink {
	return []Sink{
		NewLogSink(logger),
		commandSink{method: types.NotificationMethodDunstify, binary: "dunstify"},
		commandSink{method: types.NotificationMethodNotifySend, binary: "notify-send"},
		bellSink{out: os.Stderr},
	}
}
