package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/internal/codectest"
)

// makeDecoderGuest imports opus.create_decoder and exports
// make() -> i64 calling create_decoder(48000, 0, 960).
var makeDecoderGuest = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x0c, 0x02, 0x60, 0x03, 0x7f, 0x7f, 0x7f, 0x01, 0x7e, 0x60, 0x00, 0x01, 0x7e,
	0x02, 0x17, 0x01,
	0x04, 'o', 'p', 'u', 's',
	0x0e, 'c', 'r', 'e', 'a', 't', 'e', '_', 'd', 'e', 'c', 'o', 'd', 'e', 'r',
	0x00, 0x00,
	0x03, 0x02, 0x01, 0x01,
	0x05, 0x03, 0x01, 0x00, 0x01,
	0x07, 0x11, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x04, 'm', 'a', 'k', 'e', 0x00, 0x01,
	0x0a, 0x0f, 0x01, 0x0d, 0x00,
	0x41, 0x80, 0xf7, 0x02,
	0x41, 0x00,
	0x41, 0xc0, 0x07,
	0x10, 0x00,
	0x0b,
}

// badSignatureGuest imports opus.create_decoder as () -> i64.
var badSignatureGuest = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7e,
	0x02, 0x17, 0x01,
	0x04, 'o', 'p', 'u', 's',
	0x0e, 'c', 'r', 'e', 'a', 't', 'e', '_', 'd', 'e', 'c', 'o', 'd', 'e', 'r',
	0x00, 0x00,
}

// exitGuest exports _start calling wasi proc_exit(code).
func exitGuest(code byte) []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// types: (i32) -> (), () -> ()
		0x01, 0x08, 0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00,
		// import wasi_snapshot_preview1.proc_exit
		0x02, 0x24, 0x01,
		0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_',
		'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
		0x09, 'p', 'r', 'o', 'c', '_', 'e', 'x', 'i', 't',
		0x00, 0x00,
		0x03, 0x02, 0x01, 0x01,
		0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
		// code: i32.const code, call 0
		0x0a, 0x08, 0x01, 0x06, 0x00, 0x41, code, 0x10, 0x00, 0x0b,
	}
}

func newRuntime(t *testing.T, mutate func(*Config)) (*Runtime, *codectest.Engine) {
	t.Helper()
	ctx := context.Background()

	eng := codectest.New()
	cfg := DefaultConfig(eng)
	if mutate != nil {
		mutate(&cfg)
	}
	rt, err := New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { rt.Close(ctx) })
	return rt, eng
}

func TestNew_InvalidBridgeConfig(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.ErrorIs(t, err, errors.ErrArgument)
}

func TestRuntime_GuestCreatesSession(t *testing.T) {
	ctx := context.Background()
	rt, eng := newRuntime(t, nil)

	mod, err := rt.LoadWASM(ctx, makeDecoderGuest)
	require.NoError(t, err)
	assert.Equal(t, []string{"opus.create_decoder"}, mod.Imports())
	assert.Equal(t, []string{"make"}, mod.Exports())

	inst, err := mod.Instantiate(ctx)
	require.NoError(t, err)
	defer inst.Close(ctx)

	assert.NotEmpty(t, inst.Name())
	require.NotNil(t, inst.Memory())

	results, err := inst.Call(ctx, "make")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotZero(t, int64(results[0]))
	assert.Empty(t, inst.LastError())

	assert.Equal(t, 1, rt.Bridge().Len())
	assert.Equal(t, 1, eng.Live())

	require.NoError(t, rt.Close(ctx))
	assert.Zero(t, eng.Live(), "runtime close frees live sessions")
}

func TestRuntime_CustomHostModuleName(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRuntime(t, func(c *Config) { c.HostModule = "codec" })

	// imports from "opus" are no longer served
	mod, err := rt.LoadWASM(ctx, makeDecoderGuest)
	require.NoError(t, err)
	_, err = mod.Instantiate(ctx)
	assert.ErrorIs(t, err, errors.ErrConstruction)
}

func TestRuntime_LoadErrors(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRuntime(t, nil)

	_, err := rt.LoadWASM(ctx, []byte("not wasm"))
	assert.ErrorIs(t, err, errors.ErrArgument)

	_, err = rt.LoadWASM(ctx, badSignatureGuest)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrConstruction)
	assert.Contains(t, err.Error(), "signature mismatch")
}

func TestRuntime_WASIDisabled(t *testing.T) {
	rt, _ := newRuntime(t, func(c *Config) { c.WASI = false })

	_, err := rt.LoadWASM(context.Background(), exitGuest(0))
	assert.ErrorIs(t, err, errors.ErrArgument)
	assert.Contains(t, err.Error(), "WASI is disabled")
}

func TestInstance_ExitCode(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRuntime(t, nil)

	tests := []struct {
		name    string
		code    byte
		wantErr bool
	}{
		{"exit 0", 0, false},
		{"exit 3", 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mod, err := rt.LoadWASM(ctx, exitGuest(tt.code))
			require.NoError(t, err)
			inst, err := mod.Instantiate(ctx)
			require.NoError(t, err)
			defer inst.Close(ctx)

			results, err := inst.Call(ctx, "_start")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Nil(t, results)
		})
	}
}

func TestInstance_CallErrors(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRuntime(t, nil)

	mod, err := rt.LoadWASM(ctx, makeDecoderGuest)
	require.NoError(t, err)
	inst, err := mod.InstantiateWithOptions(ctx, InstanceOptions{Name: "caller"})
	require.NoError(t, err)
	assert.Equal(t, "caller", inst.Name())

	_, err = inst.Call(ctx, "missing")
	assert.ErrorIs(t, err, errors.ErrArgument)

	_, err = inst.Call(ctx, "make", 1)
	assert.ErrorIs(t, err, errors.ErrArgument)

	require.NoError(t, inst.Close(ctx))
	require.NoError(t, inst.Close(ctx))
	assert.Nil(t, inst.Memory())

	_, err = inst.Call(ctx, "make")
	assert.ErrorIs(t, err, errors.ErrState)
}

func TestRuntime_Closed(t *testing.T) {
	ctx := context.Background()
	rt, _ := newRuntime(t, nil)

	mod, err := rt.LoadWASM(ctx, makeDecoderGuest)
	require.NoError(t, err)

	require.NoError(t, rt.Close(ctx))
	require.NoError(t, rt.Close(ctx))

	_, err = rt.LoadWASM(ctx, makeDecoderGuest)
	assert.ErrorIs(t, err, errors.ErrState)

	_, err = mod.Instantiate(ctx)
	assert.ErrorIs(t, err, errors.ErrState)
}
