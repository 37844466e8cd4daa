// Package capture produces sample blocks from the default input device via
// miniaudio. The device callback converts the hardware sample format to the
// canonical 16-bit PCM representation and hands blocks to the segmentation
// queue without ever blocking.
package capture
