package logger

import (
	"strings"

	"go.uber.org/fx/fxevent"
)

// FxLoggerAdapter routes fx lifecycle events through this package's leveled logger.
type FxLoggerAdapter struct{}

// NewFxLoggerAdapter creates a new instance of FxLoggerAdapter.
func NewFxLoggerAdapter() fxevent.Logger {
	return &FxLoggerAdapter{}
}

// LogEvent logs events from Fx. Wiring chatter goes to TRACE/DEBUG, failures to ERROR.
func (l *FxLoggerAdapter) LogEvent(event fxevent.Event) {
	switch e := event.(type) {
	case *fxevent.OnStartExecuting:
		Tracef("fx: OnStart hook executing: %s", shortFuncName(e.FunctionName))
	case *fxevent.OnStartExecuted:
		if e.Err != nil {
			Errorf("fx: OnStart hook failed: %s, error: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: OnStart hook executed: %s (%s)", shortFuncName(e.FunctionName), e.Runtime)
	case *fxevent.OnStopExecuting:
		Tracef("fx: OnStop hook executing: %s", shortFuncName(e.FunctionName))
	case *fxevent.OnStopExecuted:
		if e.Err != nil {
			Errorf("fx: OnStop hook failed: %s, error: %v", shortFuncName(e.FunctionName), e.Err)
			return
		}
		Debugf("fx: OnStop hook executed: %s", shortFuncName(e.FunctionName))
	case *fxevent.Supplied:
		if e.Err != nil {
			Errorf("fx: supply failed: %v", e.Err)
			return
		}
		Tracef("fx: supplied %s", e.TypeName)
	case *fxevent.Provided:
		for _, rtype := range e.OutputTypeNames {
			Tracef("fx: provided %s", rtype)
		}
		if e.Err != nil {
			Errorf("fx: provide failed: %v", e.Err)
		}
	case *fxevent.Decorated:
		if e.Err != nil {
			Errorf("fx: decorate failed: %v", e.Err)
		}
	case *fxevent.Invoking:
		Tracef("fx: invoking %s", shortFuncName(e.FunctionName))
	case *fxevent.Invoked:
		if e.Err != nil {
			Errorf("fx: invoke failed: %s, error: %v", e.FunctionName, e.Err)
		}
	case *fxevent.Stopping:
		Debugf("fx: stopping on signal %s", e.Signal)
	case *fxevent.Stopped:
		if e.Err != nil {
			Errorf("fx: stop failed: %v", e.Err)
		}
	case *fxevent.RollingBack:
		Errorf("fx: start failed, rolling back: %v", e.StartErr)
	case *fxevent.RolledBack:
		if e.Err != nil {
			Errorf("fx: rollback failed: %v", e.Err)
		}
	case *fxevent.Started:
		if e.Err != nil {
			Errorf("fx: start failed: %v", e.Err)
			return
		}
		Infof("Application started.")
	case *fxevent.LoggerInitialized:
		if e.Err != nil {
			Errorf("fx: logger initialization failed: %v", e.Err)
			return
		}
		Tracef("fx: custom logger initialized: %s", e.ConstructorName)
	}
}

// shortFuncName strips the anonymous-closure suffix fx reports (".func1") and the package path.
func shortFuncName(funcName string) string {
	if idx := strings.LastIndex(funcName, ".func"); idx != -1 {
		funcName = funcName[:idx]
	}
	if idx := strings.LastIndex(funcName, "/"); idx != -1 {
		funcName = funcName[idx+1:]
	}
	return funcName
}
