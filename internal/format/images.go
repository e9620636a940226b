package format

import "fmt"

// Thumbnail returns the first non-empty candidate, or the placeholder.
func Thumbnail(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return PlaceholderImage
}

// Avatar returns url or the placeholder when the channel has none.
func Avatar(url string) string {
	return Thumbnail(url)
}

// VideoThumbnail walks the fallback chain for a video card: the API's
// maxres, high, medium and default renditions, then the static hqdefault
// image derived from the id, then the placeholder.
func VideoThumbnail(id, maxres, high, medium, def string) string {
	derived := ""
	if id != "" {
		derived = fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", id)
	}
	return Thumbnail(maxres, high, medium, def, derived)
}

// WatchURL is the page the external player opens.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ChannelURL links to a channel page.
func ChannelURL(id string) string {
	return "https://www.youtube.com/channel/" + id
}
