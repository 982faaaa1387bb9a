// Package fetch downloads remote videos with yt-dlp.
//
// The first pass asks for the best format at or below the configured height
// cap. When the download overshoots the destination ceiling by more than the
// refetch margin, the file is discarded and fetched once more at yt-dlp's
// "worst" tier. There is no further search: anything still over the ceiling
// is the size fitter's problem.
package fetch
