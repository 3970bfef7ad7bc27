package bot

import (
	"bytes"
	"context"
	"log/slog"
	"time"

	qrcode "github.com/skip2/go-qrcode"
	tele "gopkg.in/telebot.v4"

	"github.com/Purplemerit/linkshortner-sub001/internal/service"
)

const qrSize = 256

// TelegramBot lets users shorten links from a chat. Links created here
// are owned by the sender's Telegram account.
type TelegramBot struct {
	tgBot     *tele.Bot
	shortener *service.Shortener
	baseURL   string
}

func NewTelegramBot(tgToken, baseURL string, shortener *service.Shortener) (*TelegramBot, error) {
	pref := tele.Settings{
		Token:  tgToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	bot, err := tele.NewBot(pref)
	if err != nil {
		slog.Error("failed to initialize telegram bot", "error", err)
		return nil, err
	}

	b := &TelegramBot{
		tgBot:     bot,
		shortener: shortener,
		baseURL:   baseURL,
	}

	return b, nil
}

func (b *TelegramBot) Start(ctx context.Context) error {
	slog.Info("Telegram bot started", "bot_username", b.tgBot.Me.Username)

	b.tgBot.Handle("/start", b.handleStart)
	b.tgBot.Handle(tele.OnText, b.handleMessage)

	go func() {
		<-ctx.Done()
		slog.Info("Telegram bot shutting down")
		b.tgBot.Stop()
	}()

	b.tgBot.Start()
	return nil
}

func (b *TelegramBot) handleStart(c tele.Context) error {
	slog.Debug("command /start received", "user_id", c.Sender().ID)
	return c.Send("Hi! Send me a long link and I will shorten it for you.")
}

func (b *TelegramBot) handleMessage(c tele.Context) error {
	newLink := c.Text()
	if err := service.ValidateURL(newLink); err != nil {
		slog.Warn("invalid url from bot", "url", newLink, "user_id", c.Sender().ID)
		return c.Send("That doesn't look like a valid link. It must start with http:// or https:// and contain a domain.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	link, err := b.shortener.CreateShortLinkForTelegram(ctx, newLink, c.Sender().ID)
	if err != nil {
		slog.Error("failed to create short link", "error", err)
		return c.Send("Something went wrong while shortening your link. Please try again.")
	}

	shortURL := b.baseURL + "/" + link.ShortCode
	png, err := qrcode.Encode(shortURL, qrcode.Medium, qrSize)
	if err != nil {
		slog.Warn("failed to render qr code", "short_code", link.ShortCode, "error", err)
		return c.Send("Here is your short link:\n" + shortURL)
	}

	photo := &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(png)),
		Caption: "Here is your short link:\n" + shortURL,
	}
	return c.Send(photo)
}
