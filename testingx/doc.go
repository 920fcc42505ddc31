// Package testingx provides test helpers shared by the settings packages.
//
// Overview:
//   - Responsibility: Mock logger, error assertions, a recording bus and an
//     in-memory database for tests
//   - Key Types: MockLogger, RecordingBus, Emission
//   - Concurrency Model: MockLogger and RecordingBus are safe for concurrent use
//   - Error Semantics: Failures are reported through testing.TB
//   - Performance Notes: Each NewSQLiteDB call gets its own in-memory database
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	bus := testingx.NewRecordingBus()
//	db := testingx.NewSQLiteDB(t)
//	testingx.AssertError(t, err, errors.CodeInvalidArgument)
package testingx
