// Package sqschi documents the swap-in point for a real asynchronous
// function-invocation runtime (spec.md §6: "asynchronous direct
// invocations carrying the same payload plus
// {requestContext.identity.userArn} for attribution" — an SQS-plus-Lambda
// shaped dispatch in the original system). Building that runtime is out of
// scope here; internal/dispatch/inproc stands in for it in this module.
//
// A real implementation would enqueue {auditId, operationType, payload}
// onto a durable queue and have a separate consumer process invoke the
// operation handler, so the manual-trigger HTTP handler never blocks on
// the handler's own execution — this module instead dispatches in-process
// via internal/dispatch/inproc, which satisfies the same
// "enqueue, return 202 immediately" contract without the durability a real
// queue would add.
package sqschi
