package model

type MediaKind string

const (
	MediaImage MediaKind = "IMAGE"
	MediaAudio MediaKind = "AUDIO"
	MediaVideo MediaKind = "VIDEO"
)

// Media is an uploaded file attached to a target. Rows are owned by the
// upload service; the pipeline only reads them.
type Media struct {
	ID       string
	TargetID string
	Kind     MediaKind
	URL      string
	MimeType string
	Position int
}

// PayloadForMedia picks the job for a target's media: all images in order,
// else the first audio, else the first video. ok is false when nothing is
// processable. media must already be sorted by Position.
func PayloadForMedia(media []Media) (JobPayload, bool) {
	var images []string
	var audio, video *Media
	for i := range media {
		m := &media[i]
		if m.URL == "" {
			continue
		}
		switch m.Kind {
		case MediaImage:
			images = append(images, m.URL)
		case MediaAudio:
			if audio == nil {
				audio = m
			}
		case MediaVideo:
			if video == nil {
				video = m
			}
		}
	}
	switch {
	case len(images) > 0:
		return ImagePayload{ImageURLs: images}, true
	case audio != nil:
		mime := audio.MimeType
		if mime == "" {
			mime = DefaultAudioMime
		}
		return AudioPayload{AudioURL: audio.URL, MimeType: mime}, true
	case video != nil:
		return VideoPayload{VideoURL: video.URL}, true
	}
	return nil, false
}
