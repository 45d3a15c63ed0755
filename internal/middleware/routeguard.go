package middleware

import (
	"net/http"
	"strings"
)

// protectedPrefixes はログイン必須ページのパスプレフィックス。
var protectedPrefixes = []string{"/dashboard", "/settings"}

// NewRouteGuardMiddleware はページ遷移のリダイレクトミドルウェアを返す。
//
// Cookieの存在だけを見る軽量ガードであり、セッションの有効性は検証しない。
// 保護ページはCookieなしなら/loginへ、/と/loginはCookieありなら/dashboardへ
// リダイレクトする。期限切れセッションのCookieを持つ訪問者は保護ページに
// 到達できるが、そのページが呼ぶAPIが401を返すため実害はない。
// 信頼境界はあくまでセッション検証ミドルウェア側にある。
func NewRouteGuardMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasCookie := hasSessionCookie(r)

			if isProtectedPath(r.URL.Path) && !hasCookie {
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}

			if (r.URL.Path == "/" || r.URL.Path == "/login") && hasCookie {
				http.Redirect(w, r, "/dashboard", http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// hasSessionCookie はセッションCookieの存在だけを確認する。値は検証しない。
func hasSessionCookie(r *http.Request) bool {
	cookie, err := r.Cookie(SessionCookieName)
	return err == nil && cookie.Value != ""
}

// isProtectedPath はパスが保護ページに属するかを判定する。
func isProtectedPath(path string) bool {
	for _, prefix := range protectedPrefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
