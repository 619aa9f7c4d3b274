// Package render собирает тексты писем: одиночные уведомления о постах и
// дайджесты (полные и только с темами). Тела постов приходят уже
// отрисованными из core API, здесь только компоновка.
package render

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/central-university-dev/go-forum-notify/internal/domain/models"
)

const timeLayout = "02.01.2006 15:04"

// PostItem — пост с сопутствующим контекстом для письма.
type PostItem struct {
	Post       *models.Post
	Body       *models.RenderedBody
	AuthorName string
}

// DigestSection — посты одного обсуждения внутри дайджеста. SubjectsOnly
// задаётся режимом дайджеста, разрешённым для форума этого обсуждения,
// поэтому в одном письме могут соседствовать полные и краткие секции.
type DigestSection struct {
	CourseName     string
	ForumName      string
	DiscussionName string
	SubjectsOnly   bool
	Posts          []PostItem
}

// PostSubject возвращает тему письма об отдельном посте.
func PostSubject(courseShortName, discussionName string) string {
	return fmt.Sprintf("%s: %s", courseShortName, discussionName)
}

// DigestSubject возвращает тему письма-дайджеста за день.
func DigestSubject(day time.Time) string {
	return "Дайджест форумов за " + day.Format("02.01.2006")
}

// PostText собирает plain-text тело письма об отдельном посте.
func PostText(courseName, forumName, discussionName string, item PostItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s -> %s -> %s\n\n", courseName, forumName, discussionName)
	fmt.Fprintf(&b, "%s\n%s, %s\n\n", item.Post.Subject, item.AuthorName, item.Post.Created.Format(timeLayout))
	b.WriteString(item.Body.Text)
	b.WriteString("\n")

	return b.String()
}

// PostHTML собирает HTML тело письма об отдельном посте.
func PostHTML(courseName, forumName, discussionName string, item PostItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<p>%s &rarr; %s &rarr; %s</p>\n",
		html.EscapeString(courseName), html.EscapeString(forumName), html.EscapeString(discussionName))
	b.WriteString(postBlockHTML(item))

	return b.String()
}

// DigestText собирает plain-text тело дайджеста. В секциях с SubjectsOnly
// тела постов опускаются, остаются темы и авторы.
func DigestText(sections []DigestSection) string {
	var b strings.Builder

	b.WriteString("Новые посты на форумах:\n")

	for _, section := range sections {
		fmt.Fprintf(&b, "\n%s -> %s -> %s\n", section.CourseName, section.ForumName, section.DiscussionName)

		for _, item := range section.Posts {
			fmt.Fprintf(&b, "- %s (%s, %s)\n",
				item.Post.Subject, item.AuthorName, item.Post.Created.Format(timeLayout))

			if !section.SubjectsOnly {
				b.WriteString(item.Body.Text)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

// DigestHTML собирает HTML тело дайджеста.
func DigestHTML(sections []DigestSection) string {
	var b strings.Builder

	b.WriteString("<p>Новые посты на форумах:</p>\n")

	for _, section := range sections {
		fmt.Fprintf(&b, "<h3>%s &rarr; %s &rarr; %s</h3>\n",
			html.EscapeString(section.CourseName),
			html.EscapeString(section.ForumName),
			html.EscapeString(section.DiscussionName))

		if section.SubjectsOnly {
			b.WriteString("<ul>\n")

			for _, item := range section.Posts {
				fmt.Fprintf(&b, "<li>%s (%s, %s)</li>\n",
					html.EscapeString(item.Post.Subject),
					html.EscapeString(item.AuthorName),
					item.Post.Created.Format(timeLayout))
			}

			b.WriteString("</ul>\n")

			continue
		}

		for _, item := range section.Posts {
			b.WriteString(postBlockHTML(item))
		}
	}

	return b.String()
}

func postBlockHTML(item PostItem) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<h4>%s</h4>\n<p><em>%s, %s</em></p>\n<div>%s</div>\n",
		html.EscapeString(item.Post.Subject),
		html.EscapeString(item.AuthorName),
		item.Post.Created.Format(timeLayout),
		item.Body.HTML)

	return b.String()
}
