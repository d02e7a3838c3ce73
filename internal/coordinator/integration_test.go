//go:build integration

package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RobiAdawiya/andalan-solution/internal/ledger"
	"github.com/RobiAdawiya/andalan-solution/internal/testutil"
	"github.com/RobiAdawiya/andalan-solution/pkg/floorbus"
)

// TestIntegration_ShiftAgainstRealRedis drives a full shift through a real
// broker: check-in, product start, safety-gated check-out with auto-stop.
func TestIntegration_ShiftAgainstRealRedis(t *testing.T) {
	env := testutil.SetupEnvironment(t)
	store := env.OpenLedger()
	ctx := env.Ctx

	require.NoError(t, store.UpsertOperator(ctx, ledger.Operator{OperatorID: "42", Name: "Ana"}))
	require.NoError(t, store.UpsertProduct(ctx, ledger.Product{MachineID: "M1", ProductID: "P7"}))

	engine := NewEngine(env.Bus, store, Options{
		Topics:           floorbus.DefaultTopics(),
		SafetyTag:        testSafetyTag,
		WatchdogInterval: time.Second,
	})
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- engine.Run(runCtx) }()
	defer func() {
		cancel()
		<-done
	}()
	env.WaitForSubscriber(floorbus.DefaultOperatorEventsTopic)

	topics := floorbus.DefaultTopics()
	sub := env.Subscribe(topics.OperatorFeedback, topics.ProductFeedback, topics.MachineCommands)

	// Check-in
	require.NoError(t, env.Bus.Publish(ctx, topics.OperatorEvents, floorbus.OperatorEvent{OperatorID: "42", OperatorName: "Ana"}))
	msgs := receive(t, sub, 2)
	assert.Equal(t, topics.MachineCommands, msgs[0].Topic)
	fb, err := floorbus.DecodeOperatorFeedback(msgs[1].Payload)
	require.NoError(t, err)
	assert.True(t, fb.Success)

	// Product start
	require.NoError(t, env.Bus.Publish(ctx, topics.ProductEvents, floorbus.ProductEvent{MachineID: "M1", ProductID: "P7"}))
	receive(t, sub, 2)

	// Safety gate engaged, then check-out auto-stops the run
	require.NoError(t, env.Bus.Publish(ctx, topics.RawTagTelemetry, floorbus.TagReading{TagName: testSafetyTag, TagValue: floorbus.NewTagValue(1)}))
	require.Eventually(t, func() bool {
		v, err := store.LatestTagValue(ctx, testSafetyTag)
		return err == nil && v == 1
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, env.Bus.Publish(ctx, topics.OperatorEvents, floorbus.OperatorEvent{OperatorID: "42", OperatorName: "Ana"}))
	msgs = receive(t, sub, 3)
	fb, err = floorbus.DecodeOperatorFeedback(msgs[2].Payload)
	require.NoError(t, err)
	assert.Equal(t, MsgEndSuccess, fb.Message)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.RunStop, run.Action)
	assert.Equal(t, ledger.RunStop, engine.State().Get().Run.Action)
}
