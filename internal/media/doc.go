// Package media implements the image codec used by the ASCII renderer.
//
// The Codec reads the allow-listed input formats (JPEG, PNG, GIF, BMP, WebP),
// produces resized greyscale pixel buffers and writes PNG output. Every write
// goes through a temp file in the destination directory followed by a
// rename, so a failed encode never leaves a truncated file at the final path.
package media
