package entity

// MediaRecord is the fixed-shape answer of one identifier, and after
// reconciliation the single canonical description of the input file.
// A zero field means "unknown" except where a companion flag says otherwise.
type MediaRecord struct {
	Width  int
	Height int

	FrameRate float64

	// Duration is only meaningful when HasDuration is set; a decoder that
	// reports 0 seconds is distinct from one that reports nothing at all.
	Duration    float64
	HasDuration bool

	VideoCodecID   string
	VideoCodecName string
	AudioCodecID   string
	AudioCodecName string

	AudioChannels int
	DisplayAspect string
}

// HasValidDimensions reports whether both dimensions are present and positive.
// A record carrying exactly one dimension is treated the same as one carrying
// none: it triggers the dimension fallback.
func (r *MediaRecord) HasValidDimensions() bool {
	return r.Width > 0 && r.Height > 0
}

// videoCodecNames maps decoder codec ids to display names. Lookup is a pure
// function; ids the table does not know keep their raw form.
var videoCodecNames = map[string]string{
	"h264":       "MPEG-4 AVC",
	"hevc":       "HEVC",
	"mpeg4":      "MPEG-4 Visual",
	"msmpeg4v3":  "DivX 3",
	"mpeg2video": "MPEG-2",
	"mpeg1video": "MPEG-1",
	"vp8":        "VP8",
	"vp9":        "VP9",
	"av1":        "AV1",
	"wmv3":       "WMV9",
	"vc1":        "VC-1",
	"theora":     "Theora",
	"flv1":       "Sorenson Spark",
	"rawvideo":   "Raw video",
}

var audioCodecNames = map[string]string{
	"aac":       "AAC",
	"ac3":       "AC-3",
	"eac3":      "E-AC-3",
	"dts":       "DTS",
	"mp3":       "MP3",
	"mp2":       "MP2",
	"vorbis":    "Vorbis",
	"opus":      "Opus",
	"flac":      "FLAC",
	"pcm_s16le": "PCM",
	"wmav2":     "WMA",
	"truehd":    "TrueHD",
}

// VideoCodecDisplayName resolves a codec id to a human-readable name.
func VideoCodecDisplayName(id string) string {
	if name, ok := videoCodecNames[id]; ok {
		return name
	}
	return id
}

// AudioCodecDisplayName resolves an audio codec id to a human-readable name.
func AudioCodecDisplayName(id string) string {
	if name, ok := audioCodecNames[id]; ok {
		return name
	}
	return id
}
