// Package assetname derives stable "latest" download names from
// version-specific asset filenames, so /latest.<ext> URLs keep working across
// releases. It is a pure function library with no dependencies.
package assetname

import "strings"

// knownExts 按最长/最具体优先排列，先于任何通用的“最后一个点”拆分检查。
// 包含压缩归档叠加校验和的复合后缀。
var knownExts = []string{
	".tar.gz.sha256",
	".tar.xz.sha256",
	".tar.bz2.sha256",
	".tar.zst.sha256",
	".zip.sha256",
	".xz.sha256",
	".gz.sha256",
	".bz2.sha256",
	".xz.asc",
	".tar.gz",
	".tar.xz",
	".tar.bz2",
	".tar.zst",
	".xz",
	".gz",
	".bz2",
	".zst",
	".zip",
	".sha256",
	".sha512",
	".exe",
	".msi",
	".deb",
	".rpm",
}

// SplitStemExt 将文件名拆分为主干与扩展名。已知复合扩展优先匹配；
// 其余情况回退到最后一个点拆分，但拒绝空后缀、含 '-' 的后缀以及
// 纯数字后缀（例如 linux-6.19.2 的 ".2" 是版本片段而不是文件类型）。
func SplitStemExt(filename string) (stem, ext string) {
	for _, known := range knownExts {
		if strings.HasSuffix(filename, known) {
			return filename[:len(filename)-len(known)], known
		}
	}

	if pos := strings.LastIndexByte(filename, '.'); pos >= 0 {
		suffix := filename[pos+1:]
		if suffix != "" && !strings.ContainsRune(suffix, '-') && !allDigits(suffix) {
			return filename[:pos], filename[pos:]
		}
	}
	return filename, ""
}

// RenameToLatest 把版本化的资产文件名改写为 latest 形式，保留平台/格式段。
// 分隔符取主干中出现的 '-'，否则用 '_'（同时兼容 bat-v0.26.1-x86_64 与
// bat_0.26.1_amd64 两种命名习惯）。找到版本段则丢弃其前（含自身）的所有段；
// 找不到版本段时只丢弃第一段（视为应用名）。
func RenameToLatest(filename string) string {
	stem, ext := SplitStemExt(filename)

	sep := "_"
	if strings.Contains(stem, "-") {
		sep = "-"
	}

	parts := strings.Split(stem, sep)
	rest := parts[1:]
	for i, part := range parts {
		if isVersionSegment(part) {
			rest = parts[i+1:]
			break
		}
	}

	if len(rest) == 0 {
		return "latest" + ext
	}
	return "latest" + sep + strings.Join(rest, sep) + ext
}

// ExtractExtension 是旧版的扩展名提取：返回不带前导点的复合或简单后缀，
// 没有点时返回整个文件名。仍被按扩展名匹配的跳转端点使用。
func ExtractExtension(name string) string {
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tar.xz"} {
		if strings.HasSuffix(name, ext) {
			return ext[1:]
		}
	}
	if pos := strings.LastIndexByte(name, '.'); pos >= 0 {
		return name[pos+1:]
	}
	return name
}

// isVersionSegment 判断一个段在去掉可选的前导 v 后，是否呈现
// major.minor[.patch...] 形态，即前两个点分量都是非负整数。
func isVersionSegment(part string) bool {
	part = strings.TrimPrefix(part, "v")
	fields := strings.SplitN(part, ".", 3)
	if len(fields) < 2 {
		return false
	}
	return isUint(fields[0]) && isUint(fields[1])
}

func isUint(s string) bool {
	return s != "" && allDigits(s)
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
