/*
 * Copyright (c) 2025, the MeshStash Authors. All rights reserved.
 * See LICENSE for license information.
 */

package notify

import (
	"fmt"

	"gopkg.in/gomail.v2"
	"k8s.io/klog/v2"

	commonconfig "github.com/meshstash/meshstash/pkg/config"
	"github.com/meshstash/meshstash/pkg/database/client"
)

// EmailChannel alerts operators when a job terminates at the attempt cap.
// Advisory: delivery failures are logged and dropped.
type EmailChannel struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

// NewEmailChannel returns nil when email alerts are not configured.
func NewEmailChannel() *EmailChannel {
	if !commonconfig.IsEmailNotifyEnabled() {
		return nil
	}
	host := commonconfig.GetSmtpHost()
	if host == "" {
		klog.Warning("email notify enabled but smtp host is empty")
		return nil
	}
	channel := &EmailChannel{
		dialer: gomail.NewDialer(host, commonconfig.GetSmtpPort(),
			commonconfig.GetSmtpUser(), commonconfig.GetSmtpPassword()),
		from: commonconfig.GetEmailFrom(),
		to:   commonconfig.GetEmailTo(),
	}
	klog.Infof("email alert channel enabled, recipients: %d", len(channel.to))
	return channel
}

// OnJobFailed implements the queue alerter.
func (c *EmailChannel) OnJobFailed(job *client.Job) {
	if c == nil || len(c.to) == 0 {
		return
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", c.from)
	msg.SetHeader("To", c.to...)
	msg.SetHeader("Subject", fmt.Sprintf("[meshstash] job %d (%s) failed permanently", job.Id, job.Kind))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Job %d of kind %s reached its attempt cap (%d/%d).\nTarget: %d\nBlob: %s\nLast error: %s\n",
		job.Id, job.Kind, job.Attempts, job.MaxAttempts, job.TargetId, job.BlobHash, job.LastError.String))
	if err := c.dialer.DialAndSend(msg); err != nil {
		klog.ErrorS(err, "failed to send job failure alert", "job", job.Id)
	}
}
