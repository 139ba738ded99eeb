package render

import (
	"github.com/vkngwrapper/extensions/v3/ext_debug_utils"
	"github.com/vkngwrapper/triangle/report"
)

// DebugSeverities is what the debug messenger subscribes to when validation
// is on.
const DebugSeverities = ext_debug_utils.SeverityError | ext_debug_utils.SeverityWarning | ext_debug_utils.SeverityInfo

func severityOf(flags ext_debug_utils.DebugUtilsMessageSeverityFlags) report.Severity {
	switch {
	case flags&ext_debug_utils.SeverityError != 0:
		return report.Error
	case flags&ext_debug_utils.SeverityWarning != 0:
		return report.Warn
	case flags&(ext_debug_utils.SeverityInfo|ext_debug_utils.SeverityVerbose) != 0:
		return report.Info
	default:
		return report.Unknown
	}
}

// debugForwarder routes validation layer messages into a Sink.
func debugForwarder(sink report.Sink) func(ext_debug_utils.DebugUtilsMessageTypeFlags, ext_debug_utils.DebugUtilsMessageSeverityFlags, *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
	return func(msgType ext_debug_utils.DebugUtilsMessageTypeFlags, severity ext_debug_utils.DebugUtilsMessageSeverityFlags, data *ext_debug_utils.DebugUtilsMessengerCallbackData) bool {
		message := ""
		if data != nil {
			message = data.Message
		}
		report.Logf(sink, severityOf(severity), "validation %s: %s", msgType, message)
		return false
	}
}
