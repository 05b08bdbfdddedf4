package events

// ChannelResolver determines which Redis channels to publish to
type ChannelResolver interface {
	ResolveChannels(event Event) []string
}

// UserChannelResolver routes every event to the personal channel of each
// recipient.
type UserChannelResolver struct{}

func NewUserChannelResolver() *UserChannelResolver {
	return &UserChannelResolver{}
}

func (r *UserChannelResolver) ResolveChannels(event Event) []string {
	recipients := event.Recipients()
	channels := make([]string, 0, len(recipients))
	for _, id := range recipients {
		channels = append(channels, ChannelPrefixUser+id.String())
	}
	return channels
}
