package channel

import (
	"io"

	"blitter.com/go/sshd/message"
)

// maxChunk bounds a single CHANNEL_DATA/CHANNEL_EXTENDED_DATA payload;
// the engine never sends a data message larger than the peer's
// advertised maximum_packet_size.
const maxChunk = 32 * 1024

// Bridge drains a channel's stdout and stderr pipes, emitting wire
// messages onto out, until both reach EOF. It does not return until
// both drains finish, so the runner can send CHANNEL_EOF/CHANNEL_CLOSE
// only once output truly stops — per the completion-bookkeeping rule
// that a handler exiting and its pipes finishing draining are tracked
// independently.
func Bridge(ch *Channel, out chan<- message.Message) {
	done := make(chan struct{}, 2)
	go func() {
		drain(ch.StdoutReadEnd, ch.PeerID, false, ch.MaxPacketSize, out)
		done <- struct{}{}
	}()
	go func() {
		drain(ch.StderrReadEnd, ch.PeerID, true, ch.MaxPacketSize, out)
		done <- struct{}{}
	}()
	<-done
	<-done
}

func drain(r io.Reader, peerID uint32, extended bool, maxPacketSize uint32, out chan<- message.Message) {
	limit := uint32(maxChunk)
	if maxPacketSize > 0 && maxPacketSize < limit {
		limit = maxPacketSize
	}
	buf := make([]byte, limit)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := append([]byte{}, buf[:n]...)
			if extended {
				out <- message.ChannelExtendedData{
					RecipientChannel: peerID,
					DataTypeCode:     message.ExtendedDataStderr,
					Data:             chunk,
				}
			} else {
				out <- message.ChannelData{RecipientChannel: peerID, Data: chunk}
			}
		}
		if err != nil {
			return
		}
	}
}
