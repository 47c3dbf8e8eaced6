package notifier

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// EmailConfig 邮件配置。
type EmailConfig struct {
	Host          string `yaml:"host" json:"host"`
	Port          int    `yaml:"port" json:"port"`
	Username      string `yaml:"username" json:"username"`
	Password      string `yaml:"password" json:"password"`
	From          string `yaml:"from" json:"from"`
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
	BaseURL       string `yaml:"base_url" json:"base_url"`
}

// Enabled 判断是否配置了 SMTP 服务器。
func (c EmailConfig) Enabled() bool {
	return strings.TrimSpace(c.Host) != ""
}

// EmailMessage 表示一封邮件。
type EmailMessage struct {
	From    string
	To      []string
	Subject string
	Body    string
}

// EmailSender 抽象发送接口，便于测试替换。
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// SMTPClient 封装 SMTP 发送。
type SMTPClient struct {
	addr string
	auth smtp.Auth
}

func NewSMTPClient(cfg EmailConfig) *SMTPClient {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	var auth smtp.Auth
	if cfg.Username != "" && cfg.Password != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPClient{addr: addr, auth: auth}
}

func (c *SMTPClient) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return smtp.SendMail(c.addr, c.auth, msg.From, msg.To, []byte(buildEmailData(msg)))
}

// EmailNotifier 将通知事件渲染为邮件发给收件人。
type EmailNotifier struct {
	cfg    EmailConfig
	sender EmailSender
}

// NewEmailNotifier 创建 EmailNotifier。
func NewEmailNotifier(cfg EmailConfig, sender EmailSender) *EmailNotifier {
	if sender == nil {
		sender = NewSMTPClient(cfg)
	}
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = "[JobSphere]"
	}
	return &EmailNotifier{cfg: cfg, sender: sender}
}

// Notify 向 to 发送事件邮件，收件地址为空时跳过。
func (n EmailNotifier) Notify(ctx context.Context, to string, ev Event) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return nil
	}
	msg := EmailMessage{
		From:    n.cfg.From,
		To:      []string{to},
		Subject: strings.TrimSpace(n.cfg.SubjectPrefix + " " + ev.Title),
		Body:    n.buildBody(ev),
	}
	return n.sender.Send(ctx, msg)
}

func (n EmailNotifier) buildBody(ev Event) string {
	var b strings.Builder
	b.WriteString(ev.Message)
	b.WriteString("\n")
	if ev.ActionURL != "" {
		b.WriteString(fmt.Sprintf("\nView: %s%s\n", strings.TrimRight(n.cfg.BaseURL, "/"), ev.ActionURL))
	}
	return b.String()
}

func buildEmailData(msg EmailMessage) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("From: %s\r\n", msg.From))
	b.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(msg.To, ",")))
	b.WriteString(fmt.Sprintf("Subject: %s\r\n", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	return b.String()
}
