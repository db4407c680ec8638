package linker

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/plasmoverse/opusbridge"
	"github.com/plasmoverse/opusbridge/engine"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/resource"
	"github.com/plasmoverse/opusbridge/transcoder"
)

var errNoMemory = stderrors.New("guest exports no memory")

// OpusModuleName is the default import module name guests link against.
const OpusModuleName = "opus"

var (
	i32 = api.ValueTypeI32
	i64 = api.ValueTypeI64
)

// OpusHost serves the bridge to WebAssembly guests. All pointers are i32
// offsets into the calling guest's exported memory. Failures return a
// negative status and record the message as that guest's last error.
type OpusHost struct {
	bridge  *opusbridge.Bridge
	mu      sync.Mutex
	lastErr map[string]string
}

// NewOpusHost creates a host module serving b.
func NewOpusHost(b *opusbridge.Bridge) *OpusHost {
	return &OpusHost{
		bridge:  b,
		lastErr: make(map[string]string),
	}
}

// Bridge returns the bridge calls are dispatched to.
func (h *OpusHost) Bridge() *opusbridge.Bridge {
	return h.bridge
}

// Define adds the host functions to b.
func (h *OpusHost) Define(b *HostModuleBuilder) *HostModuleBuilder {
	return b.
		Func("create_decoder", h.createDecoder, []api.ValueType{i32, i32, i32}, []api.ValueType{i64}).
		Func("reset_decoder", h.resetDecoder, []api.ValueType{i64}, []api.ValueType{i32}).
		Func("close_decoder", h.closeDecoder, []api.ValueType{i32}, []api.ValueType{i32}).
		Func("decode", h.decode, []api.ValueType{i64, i32, i32, i32, i32}, []api.ValueType{i32}).
		Func("create_encoder", h.createEncoder, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i64}).
		Func("reset_encoder", h.resetEncoder, []api.ValueType{i64}, []api.ValueType{i32}).
		Func("close_encoder", h.closeEncoder, []api.ValueType{i32}, []api.ValueType{i32}).
		Func("encode", h.encode, []api.ValueType{i64, i32, i32, i32, i32}, []api.ValueType{i32}).
		Func("set_bitrate", h.setBitrate, []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Func("get_bitrate", h.getBitrate, []api.ValueType{i64, i32}, []api.ValueType{i32}).
		Func("last_error", h.lastError, []api.ValueType{i32, i32}, []api.ValueType{i32})
}

// Link builds the host module under name in l's runtime.
func (h *OpusHost) Link(ctx context.Context, l *Linker, name string) (api.Module, error) {
	if name == "" {
		name = OpusModuleName
	}
	return h.Define(l.NewHostModule(name)).Build(ctx)
}

// LastError returns the last failure message recorded for guest.
func (h *OpusHost) LastError(guest string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastErr[guest]
}

// Forget drops the last error recorded for guest.
func (h *OpusHost) Forget(guest string) {
	h.mu.Lock()
	delete(h.lastErr, guest)
	h.mu.Unlock()
}

func (h *OpusHost) record(mod api.Module, err error) int32 {
	h.mu.Lock()
	h.lastErr[mod.Name()] = err.Error()
	h.mu.Unlock()

	Logger().Debug("guest call failed",
		zap.String("guest", mod.Name()),
		zap.Error(err))
	return errors.Status(err)
}

// marshal surfaces a guest memory failure through the bridge translator.
func (h *OpusHost) marshal(mod api.Module, phase errors.Phase, detail string, handle resource.Handle, err error) int32 {
	return h.record(mod, h.bridge.Translator().Surface(phase, detail, int64(handle), err))
}

func memoryOf(mod api.Module) (transcoder.Memory, error) {
	mem := engine.ExportedMemory(mod)
	if mem == nil {
		return nil, &transcoder.Error{Op: "access", Cause: errNoMemory}
	}
	return engine.NewWazeroMemory(mem), nil
}

func (h *OpusHost) createDecoder(_ context.Context, mod api.Module, stack []uint64) {
	handle, err := h.bridge.CreateDecoder(api.DecodeI32(stack[0]), api.DecodeI32(stack[1]) != 0, api.DecodeI32(stack[2]))
	if err != nil {
		h.record(mod, err)
	}
	stack[0] = api.EncodeI64(int64(handle))
}

func (h *OpusHost) resetDecoder(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = h.status(mod, h.bridge.ResetDecoder(resource.Handle(stack[0])))
}

func (h *OpusHost) closeDecoder(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = h.closeHandle(mod, api.DecodeU32(stack[0]), h.bridge.CloseDecoder)
}

func (h *OpusHost) decode(_ context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	inPtr, inLen := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	outPtr, outCap := api.DecodeU32(stack[3]), api.DecodeU32(stack[4])

	mem, err := memoryOf(mod)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseDecode, "Failed to access guest memory", handle, err))
		return
	}
	packet, err := transcoder.ReadBytes(mem, inPtr, inLen)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseDecode, "Failed to read encoded buffer", handle, err))
		return
	}

	samples, err := h.bridge.Decode(handle, packet)
	if err != nil {
		stack[0] = api.EncodeI32(h.record(mod, err))
		return
	}

	n, err := transcoder.WriteSamples(mem, outPtr, outCap, samples)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseDecode, "Failed to write decoded samples", handle, err))
		return
	}
	stack[0] = api.EncodeU32(n)
}

func (h *OpusHost) createEncoder(_ context.Context, mod api.Module, stack []uint64) {
	handle, err := h.bridge.CreateEncoder(
		api.DecodeI32(stack[0]),
		api.DecodeI32(stack[1]) != 0,
		api.DecodeI32(stack[2]),
		api.DecodeI32(stack[3]))
	if err != nil {
		h.record(mod, err)
	}
	stack[0] = api.EncodeI64(int64(handle))
}

func (h *OpusHost) resetEncoder(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = h.status(mod, h.bridge.ResetEncoder(resource.Handle(stack[0])))
}

func (h *OpusHost) closeEncoder(_ context.Context, mod api.Module, stack []uint64) {
	stack[0] = h.closeHandle(mod, api.DecodeU32(stack[0]), h.bridge.CloseEncoder)
}

func (h *OpusHost) encode(_ context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	inPtr, inSamples := api.DecodeU32(stack[1]), api.DecodeU32(stack[2])
	outPtr, outCap := api.DecodeU32(stack[3]), api.DecodeU32(stack[4])

	mem, err := memoryOf(mod)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseEncode, "Failed to access guest memory", handle, err))
		return
	}
	pcm, err := transcoder.ReadSamples(mem, inPtr, inSamples)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseEncode, "Failed to read samples", handle, err))
		return
	}

	packet, err := h.bridge.Encode(handle, pcm)
	if err != nil {
		stack[0] = api.EncodeI32(h.record(mod, err))
		return
	}

	n, err := transcoder.WriteBytes(mem, outPtr, outCap, packet)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseEncode, "Failed to write encoded buffer", handle, err))
		return
	}
	stack[0] = api.EncodeU32(n)
}

func (h *OpusHost) setBitrate(_ context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	stack[0] = h.status(mod, h.bridge.SetBitrate(handle, api.DecodeI32(stack[1])))
}

func (h *OpusHost) getBitrate(_ context.Context, mod api.Module, stack []uint64) {
	handle := resource.Handle(stack[0])
	outPtr := api.DecodeU32(stack[1])

	mem, err := memoryOf(mod)
	if err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseBitrate, "Failed to access guest memory", handle, err))
		return
	}

	v, err := h.bridge.GetBitrate(handle)
	if err != nil {
		stack[0] = api.EncodeI32(h.record(mod, err))
		return
	}
	if err := transcoder.WriteI32(mem, outPtr, v); err != nil {
		stack[0] = api.EncodeI32(h.marshal(mod, errors.PhaseBitrate, "Failed to write bitrate", handle, err))
		return
	}
	stack[0] = api.EncodeI32(errors.StatusOK)
}

func (h *OpusHost) lastError(_ context.Context, mod api.Module, stack []uint64) {
	bufPtr, bufCap := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])

	msg := h.LastError(mod.Name())
	if len(msg) > int(bufCap) {
		msg = msg[:bufCap]
	}

	mem, err := memoryOf(mod)
	if err != nil {
		stack[0] = api.EncodeI32(errors.StatusMarshal)
		return
	}
	n, err := transcoder.WriteBytes(mem, bufPtr, bufCap, []byte(msg))
	if err != nil {
		// not recorded, so the message the guest asked for survives
		h.bridge.Translator().Surface(errors.PhaseRuntime, "Failed to write last error", 0, err)
		stack[0] = api.EncodeI32(errors.StatusMarshal)
		return
	}
	stack[0] = api.EncodeU32(n)
}

func (h *OpusHost) status(mod api.Module, err error) uint64 {
	if err != nil {
		return api.EncodeI32(h.record(mod, err))
	}
	return api.EncodeI32(errors.StatusOK)
}

// closeHandle reads the handle field at ptr, closes it and writes the zero
// handle back once the session is gone.
func (h *OpusHost) closeHandle(mod api.Module, ptr uint32, closeFn func(*resource.Handle) error) uint64 {
	mem, err := memoryOf(mod)
	if err != nil {
		return api.EncodeI32(h.marshal(mod, errors.PhaseClose, "Failed to access guest memory", resource.Invalid, err))
	}
	return h.closeIn(mod, mem, ptr, closeFn)
}

func (h *OpusHost) closeIn(mod api.Module, mem transcoder.Memory, ptr uint32, closeFn func(*resource.Handle) error) uint64 {
	raw, err := transcoder.ReadHandle(mem, ptr)
	if err != nil {
		return api.EncodeI32(h.marshal(mod, errors.PhaseClose, "Failed to read handle", resource.Invalid, err))
	}

	handle := resource.Handle(raw)
	closeErr := closeFn(&handle)
	if handle == resource.Invalid && raw != 0 {
		if err := transcoder.WriteHandle(mem, ptr, 0); err != nil {
			resetErr := errors.State(errors.PhaseClose, "Failed to reset handle", err)
			return api.EncodeI32(h.marshal(mod, errors.PhaseClose, "Failed to reset handle", resource.Handle(raw), resetErr))
		}
	}
	return h.status(mod, closeErr)
}
