// Package linker builds host modules that WebAssembly guests import.
//
// # Main Types
//
//   - Linker: holds host function definitions per import module and
//     instantiates them into a wazero runtime
//   - HostModuleBuilder: collects functions for one import module
//   - OpusHost: the "opus" host module dispatching to an opusbridge.Bridge
//
// # Guest ABI
//
// Handles travel as i64, pointers as i32 offsets into the caller's exported
// memory. Calls that fail return a negative status (see errors.Status) or
// the zero handle, and the message is kept as the guest's last error:
//
//	create_decoder(rate, stereo, frame_size i32) -> handle i64
//	reset_decoder(handle i64) -> status i32
//	close_decoder(handle_ptr i32) -> status i32
//	decode(handle i64, in_ptr, in_len, out_ptr, out_cap i32) -> samples i32
//	create_encoder(rate, stereo, mode, mtu i32) -> handle i64
//	reset_encoder(handle i64) -> status i32
//	close_encoder(handle_ptr i32) -> status i32
//	encode(handle i64, in_ptr, in_samples, out_ptr, out_cap i32) -> bytes i32
//	set_bitrate(handle i64, bitrate i32) -> status i32
//	get_bitrate(handle i64, out_ptr i32) -> status i32
//	last_error(buf_ptr, buf_cap i32) -> length i32
//
// close_* write 0 into the i64 at handle_ptr once the session is gone.
//
// # Thread Safety
//
// Linker and OpusHost are safe for concurrent use.
package linker
