// Package sox builds and runs the sox invocations that turn an arbitrary
// recording into a device sample.
//
// A conversion is two invocations. The first only trims near-silence:
//
//	sox in.flac -t wav .in.trim.wav silence 1 0.1 1% reverse silence 1 0.1 1% reverse
//
// The second applies everything else in a fixed order:
//
//	sox .in.trim.wav -t wav -b 16 -r 31250 out.wav speed 3 rate 31250 pad 0 1.5 channels 1
//
// Keeping the trim separate guarantees the padding added later is never
// mistaken for silence.
package sox
