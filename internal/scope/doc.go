// Package scope decides whether a page is exempt from filtering.
//
// A whitelist entry is a host pattern. It covers the host itself and every
// subdomain of it: "example.com" covers "news.example.com" but not
// "notexample.com". The decision is taken from the page URL on every scan,
// since single-page applications change the URL without reloading.
package scope
