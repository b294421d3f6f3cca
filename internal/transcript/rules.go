package transcript

import (
	"errors"
	"regexp"
	"strings"

	"github.com/neilberkman/skypetext/internal/skype"
)

// rule renders the content of one message type
type rule func(f *Formatter, m *skype.Enriched) (string, error)

var (
	nameTagRegex      = regexp.MustCompile(`(?s)<name>(.*?)</name>`)
	initiatorTagRegex = regexp.MustCompile(`(?s)<initiator>(.*?)</initiator>`)
	targetTagRegex    = regexp.MustCompile(`(?s)<target>(.*?)</target>`)
	idTagRegex        = regexp.MustCompile(`(?s)<id>(.*?)</id>`)
	valueTagRegex     = regexp.MustCompile(`(?s)<value>(.*?)</value>`)
	roleTagRegex      = regexp.MustCompile(`(?s)<role>(.*?)</role>`)
	legacyQuoteRegex  = regexp.MustCompile(`(?s)<legacyquote>\[(.*?)\](.*?)</legacyquote>`)

	callEventTypeRegex = regexp.MustCompile(`(?s)<partlist .*?type="(.*?)"`)
	subjectRegex       = regexp.MustCompile(`(?s)<URIObject .*?subject="(.*?)">`)
	contactRegex       = regexp.MustCompile(`(?s)<c .*?s="(.*?)" .*?f="(.*?)".*?(/>|></c>)`)
	hrefRegex          = regexp.MustCompile(`(?s)<a .*?href="(.*?)".*?>`)
	originalNameRegex  = regexp.MustCompile(`(?s)<OriginalName .*?v="(.*?)".*?(/>|></OriginalName>)`)
)

// rules maps Skype message types to their renderers. Types not listed here
// go through unknownRule.
var rules = map[string]rule{
	"RichText":                                 richTextRule,
	"InviteFreeRelationshipChanged/Initialized": richTextRule,

	"RichText/UriObject":         mediaRule("Link"),
	"RichText/Media_FlikMsg":     mediaRule("Animation"),
	"RichText/Media_GenericFile": mediaRule("File"),
	"RichText/Media_Video":       mediaRule("Video"),
	"RichText/Media_Card":        mediaRule("Card"),

	"Text":           textRule,
	"RichText/Files": filesRule,

	"RichText/Media_CallRecording": linkRule("Call recording link"),
	"RichText/Media_AudioMsg":      linkRule("Voicemail link"),
	"RichText/Location":            linkRule("Location"),

	"Event/Call":                   callRule,
	"RichText/ScheduledCallInvite": callInviteRule,

	"ThreadActivity/AddMember":    membershipRule("joined", "added"),
	"ThreadActivity/DeleteMember": membershipRule("left", "removed"),
	"ThreadActivity/TopicUpdate":  topicRule,

	"ThreadActivity/E2EEHandshakeInvite":   handshakeRule("has been invited to encrypted conversation by"),
	"ThreadActivity/E2EEHandshakeAccept":   handshakeRule("has accepted encrypted conversation invitation by"),
	"ThreadActivity/E2EEHandshakeComplete": handshakeRule("has accepted encrypted conversation invitation by"),
	"ThreadActivity/E2EEHandshakeReject":   handshakeRule("has rejected encrypted conversation invitation by"),

	"RichText/Contacts":           contactsRule,
	"ThreadActivity/PictureUpdate": pictureRule,

	"EndToEndEncryption/EncryptedText":  fixedRule("/ Encrypted message /"),
	"EndToEndEncryption/EncryptedMedia": fixedRule("/ Encrypted media /"),
	"RichText/Media_Album":              fixedRule("/ Media album /"),

	"Notice":  noticeRule,
	"PopCard": popCardRule,

	"ThreadActivity/HistoryDisclosedUpdate": toggleRule(
		func(s *State) *bool { return &s.HistoryDisclosed },
		"History disclosed", "History hidden"),
	"ThreadActivity/JoiningEnabledUpdate": toggleRule(
		func(s *State) *bool { return &s.JoiningEnabled },
		"Joining enabled", "Joining disabled"),
	"ThreadActivity/RoleUpdate": roleRule,
}

func unknownRule(_ *Formatter, m *skype.Enriched) (string, error) {
	return "/ Unknown message type '" + m.MessageType + "' : " + m.Content + " /", nil
}

func textRule(_ *Formatter, m *skype.Enriched) (string, error) {
	return m.Content, nil
}

func fixedRule(text string) rule {
	return func(*Formatter, *skype.Enriched) (string, error) {
		return text, nil
	}
}

func richTextRule(f *Formatter, m *skype.Enriched) (string, error) {
	content := legacyQuoteRegex.ReplaceAllStringFunc(m.Content, func(match string) string {
		parts := legacyQuoteRegex.FindStringSubmatch(match)
		stamp, author := parts[1], parts[2]
		// some clients write a clock time instead of epoch seconds; keep it as is
		if t, err := skype.ParseEpochSeconds(stamp); err == nil {
			stamp = f.clock.Format(t)
		}
		return "/ Quoting " + stamp + author + "/ "
	})
	return skype.CleanMarkup(content), nil
}

func mediaRule(kind string) rule {
	return func(_ *Formatter, m *skype.Enriched) (string, error) {
		return describeAttachment(kind, m.Content), nil
	}
}

// describeAttachment renders "/ <kind>: <names> <links> / <text>", leaving the
// links out when the text already shows them
func describeAttachment(kind, content string) string {
	links := joinUnescaped(findAll(hrefRegex, content))
	names := joinUnescaped(findAll(originalNameRegex, content))
	text := skype.CleanMarkup(content)

	var sb strings.Builder
	sb.WriteString("/ " + kind + ": " + names)
	if !strings.Contains(text, links) {
		sb.WriteString(" " + links)
	}
	sb.WriteString(" / " + text)
	return sb.String()
}

func filesRule(_ *Formatter, m *skype.Enriched) (string, error) {
	count := strings.Count(m.Content, "<file ")
	text := strings.TrimSpace(skype.CleanMarkup(m.Content))

	label := "/ Sent file"
	if count > 1 {
		label += "s"
	}
	return label + ": / " + text, nil
}

func linkRule(kind string) rule {
	return func(_ *Formatter, m *skype.Enriched) (string, error) {
		links := joinUnescaped(findAll(hrefRegex, m.Content))
		text := strings.TrimSpace(skype.CleanMarkup(m.Content))

		label := "/ " + kind
		if !strings.Contains(text, links) {
			label += ": " + links
		}
		return label + " / " + text, nil
	}
}

func callRule(_ *Formatter, m *skype.Enriched) (string, error) {
	eventTypes := findAll(callEventTypeRegex, m.Content)
	if len(eventTypes) == 0 {
		return "", errors.New("call event without a partlist type")
	}
	names := joinCleaned(findAll(nameTagRegex, m.Content))
	return "/ Call " + eventTypes[0] + ": " + names + " /", nil
}

func callInviteRule(_ *Formatter, m *skype.Enriched) (string, error) {
	subjects := joinUnescaped(findAll(subjectRegex, m.Content))
	return "/ Call invitation. Subject: '" + subjects + "' / " + skype.CleanMarkup(m.Content), nil
}

func membershipRule(selfVerb, otherVerb string) rule {
	return func(_ *Formatter, m *skype.Enriched) (string, error) {
		targets, count, err := usernames(targetTagRegex, m.Content)
		if err != nil {
			return "", err
		}
		initiators, _, err := usernames(initiatorTagRegex, m.Content)
		if err != nil {
			return "", err
		}

		switch {
		case initiators == targets || initiators == "":
			return "/ Group member has " + selfVerb + ": " + targets + " /", nil
		case count > 1:
			return "/ Group members " + targets + " have been " + otherVerb + " by " + initiators + " /", nil
		default:
			return "/ Group member " + targets + " has been " + otherVerb + " by " + initiators + " /", nil
		}
	}
}

func topicRule(_ *Formatter, m *skype.Enriched) (string, error) {
	values := joinCleaned(findAll(valueTagRegex, m.Content))
	initiators, _, err := usernames(initiatorTagRegex, m.Content)
	if err != nil {
		return "", err
	}
	return "/ The group topic has been set to '" + values + "' by " + initiators + " /", nil
}

func handshakeRule(narration string) rule {
	return func(_ *Formatter, m *skype.Enriched) (string, error) {
		targets, _, err := usernames(targetTagRegex, m.Content)
		if err != nil {
			return "", err
		}
		initiators, _, err := usernames(initiatorTagRegex, m.Content)
		if err != nil {
			return "", err
		}
		return "/ User " + targets + " " + narration + " " + initiators + " /", nil
	}
}

func contactsRule(_ *Formatter, m *skype.Enriched) (string, error) {
	var contacts []string
	for _, match := range contactRegex.FindAllStringSubmatch(m.Content, -1) {
		id, name := match[1], match[2]
		contacts = append(contacts, strings.TrimSpace(skype.UnescapeEntities(name)+" ("+id+")"))
	}
	return "/ Contacts: " + strings.Join(contacts, ", ") + " /", nil
}

func pictureRule(_ *Formatter, m *skype.Enriched) (string, error) {
	initiators, _, err := usernames(initiatorTagRegex, m.Content)
	if err != nil {
		return "", err
	}
	return "/ User " + initiators + " has changed their profile picture /", nil
}

// toggleRule renders a thread setting change only when it differs from the
// remembered value. The remembered value follows every recognised update,
// rendered or not.
func toggleRule(flag func(*State) *bool, on, off string) rule {
	return func(f *Formatter, m *skype.Enriched) (string, error) {
		value := joinCleaned(findAll(valueTagRegex, m.Content))
		initiators, _, err := usernames(initiatorTagRegex, m.Content)
		if err != nil {
			return "", err
		}

		current := flag(&f.state)
		var next bool
		var label string
		switch strings.ToUpper(value) {
		case "TRUE":
			next, label = true, on
		case "FALSE":
			next, label = false, off
		default:
			return "", errSuppressed
		}

		changed := *current != next
		*current = next
		if !changed {
			return "", errSuppressed
		}
		return "/ " + label + " by " + initiators + " /", nil
	}
}

func roleRule(_ *Formatter, m *skype.Enriched) (string, error) {
	// the member whose role changed is in <id>, not <target>
	targets, _, err := usernames(idTagRegex, m.Content)
	if err != nil {
		return "", err
	}
	initiators, _, err := usernames(initiatorTagRegex, m.Content)
	if err != nil {
		return "", err
	}
	roles := joinCleaned(findAll(roleTagRegex, m.Content))

	if targets == initiators && roles == "user" {
		return "", errSuppressed
	}
	return "/ Role of user " + targets + " updated to role '" + roles + "' by " + initiators + " /", nil
}

// findAll returns the first capture group of every match
func findAll(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	out := make([]string, 0, len(matches))
	for _, match := range matches {
		out = append(out, match[1])
	}
	return out
}

func joinUnescaped(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = skype.UnescapeEntities(v)
	}
	return strings.Join(out, ", ")
}

func joinCleaned(values []string) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = skype.CleanMarkup(v)
	}
	return strings.Join(out, ", ")
}

// usernames extracts the identities captured by re, strips their transport
// prefixes and returns them comma-joined along with their count
func usernames(re *regexp.Regexp, content string) (string, int, error) {
	raw := findAll(re, content)
	names := make([]string, len(raw))
	for i, r := range raw {
		name, err := skype.StripUsernamePrefix(r)
		if err != nil {
			return "", 0, err
		}
		names[i] = name
	}
	return strings.Join(names, ", "), len(names), nil
}
