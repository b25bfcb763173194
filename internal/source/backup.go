package source

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/cleared-dev/tally/internal/model"
)

// BackupParser reads the XML written by Android SMS backup apps:
//
//	<smses count="1">
//	  <sms address="MPESA" date="1741158000000" type="1" body="..." />
//	</smses>
//
// Only received messages (type 1) are returned. The export has no message
// id, so ExternalID is built from the sender and the millisecond timestamp.
type BackupParser struct{}

type backupFile struct {
	Messages []backupSMS `xml:"sms"`
}

type backupSMS struct {
	Address string `xml:"address,attr"`
	Date    string `xml:"date,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:"body,attr"`
}

const backupInbox = "1"

// Ext returns ".xml".
func (p *BackupParser) Ext() string { return ".xml" }

// Parse decodes a backup file.
func (p *BackupParser) Parse(r io.Reader) ([]model.RawMessage, error) {
	var doc backupFile
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding backup XML: %w", err)
	}

	var msgs []model.RawMessage
	for i, s := range doc.Messages {
		if s.Type != backupInbox {
			continue
		}
		ms, err := strconv.ParseInt(s.Date, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("sms %d: parsing date %q: %w", i+1, s.Date, err)
		}
		msgs = append(msgs, model.RawMessage{
			ExternalID: fmt.Sprintf("sms-%s-%d", s.Address, ms),
			Sender:     s.Address,
			Body:       s.Body,
			Timestamp:  time.UnixMilli(ms),
		})
	}
	return msgs, nil
}
