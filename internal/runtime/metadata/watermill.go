package metadata

import "github.com/ThreeDotsLabs/watermill/message"

// FromWatermill copies the headers of a Watermill message.
func FromWatermill(md message.Metadata) Metadata {
	result := make(Metadata, len(md))
	for k, v := range md {
		result[k] = v
	}
	return result
}

// ToWatermill copies m into a Watermill metadata map.
func ToWatermill(m Metadata) message.Metadata {
	wm := make(message.Metadata, len(m))
	for k, v := range m {
		wm[k] = v
	}
	return wm
}
