// Package mediatypes holds the upload allow-lists and MIME helpers shared by
// the HTTP boundary, the CLI and the conversion packages.
//
// This package exists as a dependency-free foundation that can be imported by
// other packages without creating import cycles. It contains primitive types,
// constants and pure functions.
//
// # File Types
//
//	mediatypes.FileTypeImage // jpg, jpeg, png, gif, bmp, webp
//	mediatypes.FileTypeVideo // mp4, avi, mov, mkv, webm
//	mediatypes.FileTypeOther // everything else
//
// # Validation
//
// CheckUpload validates both the filename extension and the declared MIME
// type of an upload against the allow-list for the expected kind:
//
//	if err := mediatypes.CheckUpload(mediatypes.FileTypeImage, name, mime); err != nil {
//	    // errors.Is(err, apperr.ErrUnsupportedFormat)
//	}
package mediatypes
