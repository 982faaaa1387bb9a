// Package brand renders a translucent text watermark and composites it onto
// a video with ffmpeg.
//
// A branding failure never fails a job: callers receive ErrBrand and deliver
// the unbranded download instead.
package brand
