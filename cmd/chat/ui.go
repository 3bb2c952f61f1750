package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mintchat/mintchat/internal/nft"
	"github.com/mintchat/mintchat/internal/session"
	"github.com/mintchat/mintchat/internal/store"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

type chatReplyMsg struct {
	reply *chatReply
	err   error
}

type mintReplyMsg struct {
	txHash string
	err    error
}

type chatModel struct {
	sess   *session.Session
	repo   store.Repository
	client *apiClient

	input    textinput.Model
	viewport viewport.Model
	spin     spinner.Model

	// index of the conversation message carrying the current image, so a
	// confirmed mint hash can be attached to it.
	imageIndex int

	width  int
	height int
	ready  bool
	status string
}

func newChatModel(sess *session.Session, repo store.Repository, client *apiClient) chatModel {
	input := textinput.New()
	input.Placeholder = "Ask for an image, or just chat..."
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return chatModel{
		sess:       sess,
		repo:       repo,
		client:     client,
		input:      input,
		spin:       spin,
		imageIndex: -1,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.refreshViewport()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.startSend()
		case tea.KeyCtrlN:
			return m.startMint()
		}

	case chatReplyMsg:
		return m.finishSend(msg)

	case mintReplyMsg:
		return m.finishMint(msg)

	case spinner.TickMsg:
		if m.sess.InFlight() {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// startSend appends the user message, clears the input, and fires the
// request. A second send is refused while one is in flight.
func (m chatModel) startSend() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return m, nil
	}
	if !m.sess.Begin() {
		return m, nil
	}

	m.sess.Append(session.RoleUser, content)
	m.input.Reset()
	m.status = ""
	m.refreshViewport()

	messages := m.sess.Messages()
	descriptor := m.sess.NFT()
	send := func() tea.Msg {
		reply, err := m.client.Chat(context.Background(), messages, descriptor)
		return chatReplyMsg{reply: reply, err: err}
	}

	return m, tea.Batch(send, m.spin.Tick)
}

func (m chatModel) finishSend(msg chatReplyMsg) (tea.Model, tea.Cmd) {
	m.sess.End()

	if msg.err != nil {
		slog.Error("Chat request failed", "error", msg.err)
		m.sess.AppendError()
		m.refreshViewport()
		return m, nil
	}

	previous := m.sess.NFT()
	latest := msg.reply.LatestNFT
	m.sess.SetNFT(latest)

	if latest.Wallet != "" && latest.Wallet != previous.Wallet {
		if err := m.repo.SaveWallet(context.Background(), latest.Wallet); err != nil {
			slog.Warn("Failed to persist wallet address", "error", err)
		}
	}

	text := msg.reply.Text()
	if latest.Image != "" && latest.Image != previous.Image {
		m.imageIndex = m.sess.AppendWithNFT(session.RoleAssistant, text, latest)
	} else {
		m.sess.Append(session.RoleAssistant, text)
	}

	m.refreshViewport()
	return m, nil
}

// startMint fires the mint request for the session descriptor. The key is
// a no-op unless the descriptor is mintable and nothing is in flight.
func (m chatModel) startMint() (tea.Model, tea.Cmd) {
	descriptor := m.sess.NFT()
	if !nft.Mintable(descriptor) {
		m.status = "Nothing to mint yet: generate an image and share a wallet address first."
		return m, nil
	}
	if descriptor.Hash != "" {
		m.status = "This image is already minted."
		return m, nil
	}
	if !m.sess.Begin() {
		return m, nil
	}

	m.status = "Minting..."
	mintIt := func() tea.Msg {
		txHash, err := m.client.Mint(context.Background(), descriptor)
		return mintReplyMsg{txHash: txHash, err: err}
	}
	return m, tea.Batch(mintIt, m.spin.Tick)
}

func (m chatModel) finishMint(msg mintReplyMsg) (tea.Model, tea.Cmd) {
	m.sess.End()
	m.status = ""

	if msg.err != nil {
		slog.Error("Mint request failed", "error", msg.err)
		m.sess.Append(session.RoleAssistant,
			"Minting failed: "+msg.err.Error()+" Press ctrl+n to try again.")
		m.refreshViewport()
		return m, nil
	}

	if err := m.sess.AttachMintHash(m.imageIndex, msg.txHash); err != nil {
		slog.Warn("Could not attach mint hash to message", "index", m.imageIndex, "error", err)
		m.sess.Append(session.RoleAssistant,
			"Your NFT was minted successfully! Transaction: "+msg.txHash)
	}

	minted := m.sess.NFT()
	if minted.Hash == "" {
		minted.Hash = msg.txHash
		m.sess.SetNFT(minted)
	}
	if err := m.repo.RecordMint(context.Background(), minted); err != nil {
		slog.Warn("Failed to record mint locally", "error", err)
	}

	m.refreshViewport()
	return m, nil
}

func (m *chatModel) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderMessages())
	m.viewport.GotoBottom()
}

func (m *chatModel) renderMessages() string {
	var b strings.Builder
	for _, msg := range m.sess.Messages() {
		switch msg.Role {
		case session.RoleUser:
			b.WriteString(userStyle.Render("You") + "  " + msg.Content + "\n")
		case session.RoleAssistant:
			b.WriteString(assistantStyle.Render("Bot") + "  " + msg.Content + "\n")
		default:
			continue
		}
		if msg.NFT != nil {
			if msg.NFT.Image != "" {
				b.WriteString(metaStyle.Render("     image: "+msg.NFT.Image) + "\n")
			}
			if msg.NFT.Hash != "" {
				b.WriteString(metaStyle.Render("     tx: "+msg.NFT.Hash) + "\n")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m chatModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var footer string
	switch {
	case m.sess.InFlight():
		footer = m.spin.View() + " thinking..."
	case m.status != "":
		footer = statusStyle.Render(m.status)
	case nft.Mintable(m.sess.NFT()) && m.sess.NFT().Hash == "":
		footer = statusStyle.Render("Ready to mint! Press ctrl+n.")
	default:
		footer = metaStyle.Render("enter: send • ctrl+n: mint • esc: quit")
	}

	return fmt.Sprintf("%s\n%s\n%s", m.viewport.View(), m.input.View(), footer)
}
