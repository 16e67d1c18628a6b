package firmware

import "fmt"

// Channel is a release track partitioning the firmware bucket by key prefix.
type Channel string

const (
	ChannelLTS     Channel = "LTS"
	ChannelDevRel  Channel = "DevRel"
	ChannelNightly Channel = "nightly"
)

// Channels lists all valid update channels.
var Channels = []Channel{ChannelLTS, ChannelDevRel, ChannelNightly}

// ParseChannel validates a caller-supplied channel string. Channel validation
// happens at every boundary; the resolver itself assumes a valid channel.
func ParseChannel(s string) (Channel, error) {
	for _, c := range Channels {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown update channel %q (valid channels: %s, %s, %s)",
		s, ChannelLTS, ChannelDevRel, ChannelNightly)
}

func (c Channel) String() string {
	return string(c)
}
