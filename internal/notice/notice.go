// Package notice holds the user-facing messages shown when a panel operation
// fails or completes. Japanese is the default locale.
package notice

import "golang.org/x/text/language"

// Key identifies a message.
type Key string

const (
	CommentFetchFailed  Key = "comment_fetch_failed"
	CommentDeleteFailed Key = "comment_delete_failed"
	CommentPostFailed   Key = "comment_post_failed"
	PostsFetchFailed    Key = "posts_fetch_failed"
	PostDeleteFailed    Key = "post_delete_failed"
	PostCreateFailed    Key = "post_create_failed"
	ProfileUpdated      Key = "profile_updated"
	ProfileUpdateFailed Key = "profile_update_failed"
)

var supported = []language.Tag{language.Japanese, language.English}

var matcher = language.NewMatcher(supported)

var catalog = map[language.Tag]map[Key]string{
	language.Japanese: {
		CommentFetchFailed:  "コメントの取得に失敗しました。",
		CommentDeleteFailed: "コメントの削除に失敗しました。",
		CommentPostFailed:   "コメントの投稿に失敗しました。",
		PostsFetchFailed:    "投稿の取得に失敗しました。",
		PostDeleteFailed:    "投稿の削除に失敗しました。",
		PostCreateFailed:    "投稿に失敗しました。",
		ProfileUpdated:      "プロフィールを更新しました。",
		ProfileUpdateFailed: "プロフィールの更新に失敗しました。",
	},
	language.English: {
		CommentFetchFailed:  "Failed to load comments.",
		CommentDeleteFailed: "Failed to delete the comment.",
		CommentPostFailed:   "Failed to post the comment.",
		PostsFetchFailed:    "Failed to load posts.",
		PostDeleteFailed:    "Failed to delete the post.",
		PostCreateFailed:    "Failed to create the post.",
		ProfileUpdated:      "Profile updated.",
		ProfileUpdateFailed: "Failed to update the profile.",
	},
}

// Match picks the best supported locale for an Accept-Language header value.
func Match(acceptLanguage string) language.Tag {
	if acceptLanguage == "" {
		return language.Japanese
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.Japanese
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return language.Japanese
	}
	return supported[idx]
}

// Message returns the text for key in tag, falling back to Japanese.
func Message(tag language.Tag, key Key) string {
	if msgs, ok := catalog[tag]; ok {
		if m, ok := msgs[key]; ok {
			return m
		}
	}
	return catalog[language.Japanese][key]
}
