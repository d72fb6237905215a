package utils_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/temirov/transplant/internal/utils"
)

const testLogMessageConstant = "transplant step created"

func TestLoggerFactoryCreateLoggerOutputs(testInstance *testing.T) {
	testCases := []struct {
		name               string
		requestedLogLevel  utils.LogLevel
		requestedLogFormat utils.LogFormat
		expectError        bool
		expectJSON         bool
	}{
		{name: "debug_structured", requestedLogLevel: utils.LogLevelDebug, requestedLogFormat: utils.LogFormatStructured, expectJSON: true},
		{name: "info_console", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: utils.LogFormatConsole},
		{name: "mixed_case_names", requestedLogLevel: " INFO ", requestedLogFormat: "Structured", expectJSON: true},
		{name: "unsupported_level", requestedLogLevel: "chatty", requestedLogFormat: utils.LogFormatStructured, expectError: true},
		{name: "unsupported_format", requestedLogLevel: utils.LogLevelInfo, requestedLogFormat: "xml", expectError: true},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf("%d_%s", testCaseIndex, testCase.name), func(subtest *testing.T) {
			sink := &bytes.Buffer{}
			outputs, creationError := utils.NewLoggerFactoryWithSink(sink).CreateLoggerOutputs(testCase.requestedLogLevel, testCase.requestedLogFormat)
			if testCase.expectError {
				require.Error(subtest, creationError)
				require.Nil(subtest, outputs.DiagnosticLogger)
				return
			}
			require.NoError(subtest, creationError)

			outputs.DiagnosticLogger.Info(testLogMessageConstant)
			require.NoError(subtest, outputs.DiagnosticLogger.Sync())

			captured := bytes.TrimSpace(sink.Bytes())
			require.Contains(subtest, string(captured), testLogMessageConstant)
			require.Equal(subtest, testCase.expectJSON, json.Valid(captured))
		})
	}
}

func TestLoggerOutputsEnableDebugLowersLevel(testInstance *testing.T) {
	sink := &bytes.Buffer{}
	outputs, creationError := utils.NewLoggerFactoryWithSink(sink).CreateLoggerOutputs(utils.LogLevelWarn, utils.LogFormatStructured)
	require.NoError(testInstance, creationError)

	outputs.DiagnosticLogger.Info(testLogMessageConstant)
	require.Zero(testInstance, sink.Len())
	require.False(testInstance, outputs.DiagnosticLogger.Core().Enabled(zapcore.DebugLevel))

	outputs.EnableDebug()

	require.True(testInstance, outputs.DiagnosticLogger.Core().Enabled(zapcore.DebugLevel))
	outputs.DiagnosticLogger.Debug(testLogMessageConstant)
	require.Contains(testInstance, sink.String(), testLogMessageConstant)
}
