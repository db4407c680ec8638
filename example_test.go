package opusbridge_test

import (
	stderrors "errors"
	"fmt"

	"github.com/plasmoverse/opusbridge"
	"github.com/plasmoverse/opusbridge/errors"
	"github.com/plasmoverse/opusbridge/internal/codectest"
)

func Example() {
	b, err := opusbridge.New(opusbridge.DefaultConfig(codectest.New()))
	if err != nil {
		panic(err)
	}
	defer b.Close()

	enc, _ := b.CreateEncoder(48000, true, 2048, 4000)
	dec, _ := b.CreateDecoder(48000, true, 960)

	packet, _ := b.Encode(enc, make([]int16, 1920))
	samples, _ := b.Decode(dec, packet)
	fmt.Println(len(samples))

	_ = b.CloseEncoder(&enc)
	fmt.Println(int64(enc))
	// Output:
	// 1920
	// 0
}

func ExampleBridge_SetBitrate() {
	b, _ := opusbridge.New(opusbridge.DefaultConfig(codectest.New()))
	defer b.Close()

	enc, _ := b.CreateEncoder(48000, false, 2049, 1500)
	for _, v := range []int32{-1000, -1, 100, 1000000} {
		_ = b.SetBitrate(enc, v)
		got, _ := b.GetBitrate(enc)
		fmt.Println(got)
	}
	// Output:
	// -1000
	// -1
	// 500
	// 512000
}

func ExampleBridge_CloseDecoder() {
	b, _ := opusbridge.New(opusbridge.DefaultConfig(codectest.New()))
	defer b.Close()

	dec, _ := b.CreateDecoder(16000, false, 320)
	old := dec
	_ = b.CloseDecoder(&dec)

	_, err := b.Decode(old, nil)
	fmt.Println(stderrors.Is(err, errors.ErrState), errors.Status(err))
	// Output:
	// true -2
}
