package ffmpeg

import "regexp"

// Pre-compiled stderr classifiers used to attach operator hints to failures.
var (
	reNoSpace = regexp.MustCompile(`(?i)No space left on device`)

	reEncoderMissing = regexp.MustCompile(
		`(?i)Unknown encoder|Encoder .* not found|` +
			`No such filter|Error initializing filter`)

	reInvalidInput = regexp.MustCompile(
		`(?i)Invalid data found when processing input|moov atom not found|` +
			`could not find codec parameters|End of file`)

	reFontIssue = regexp.MustCompile(`(?i)Cannot find a valid font|Could not load font`)
)

// MatchNoSpace reports whether stderr shows a full disk.
func MatchNoSpace(stderr string) bool { return reNoSpace.MatchString(stderr) }

// MatchEncoderMissing reports whether the ffmpeg build lacks an encoder or filter.
func MatchEncoderMissing(stderr string) bool { return reEncoderMissing.MatchString(stderr) }

// MatchInvalidInput reports whether the input file was unreadable or truncated.
func MatchInvalidInput(stderr string) bool { return reInvalidInput.MatchString(stderr) }

// MatchFontIssue reports whether a text filter could not load its font.
func MatchFontIssue(stderr string) bool { return reFontIssue.MatchString(stderr) }

// Hint maps stderr to a short operator hint, or "" when nothing matches.
func Hint(stderr string) string {
	switch {
	case MatchNoSpace(stderr):
		return "free space in paths.work_dir"
	case MatchEncoderMissing(stderr):
		return "install an ffmpeg build with libx264 and aac"
	case MatchInvalidInput(stderr):
		return "source download is truncated or not a video"
	case MatchFontIssue(stderr):
		return "check brand.font_path"
	default:
		return ""
	}
}
