// Package evaluator drives a pipeline over source instances the way a
// simultaneous translation evaluation would: one source token per step, the
// last token flagged finished, recording which prediction word was emitted
// after how many source tokens.
//
// Finished runs are summarised by Average Lagging (AL) and can be persisted
// to a kv.Store through Store.
package evaluator
