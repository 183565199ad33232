// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/buildmemo/internal/meta"
)

const bashCompletionScript = `# bash completion for buildmemo
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_buildmemo_keys()
{
    buildmemo ls --output json --no-color 2>/dev/null | tr ',' '\n' | sed -n 's/.*"key":"\([^"]*\)".*/\1/p'
}

_buildmemo()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "clear completion diff fetch get ls pull purge push rm show --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--root -r --tldr"
    local out="--color -c --no-color --filter -f --output -o --sort -s --titles -t --no-titles"
    local s3="--bucket -b --prefix --region --profile --endpoint --dry-run -n"

    case "$cmd" in
        ls|show)
            local opts="$common $out --timeout"
            ;;
        get)
            local opts="$common --path -p"
            ;;
        rm)
            local opts="$common"
            ;;
        clear)
            local opts="$common"
            ;;
        purge)
            local opts="$common --hours"
            ;;
        fetch)
            local opts="$common --timeout --header -H --http-timeout --token"
            ;;
        diff)
            local opts="$common --against -a --color -c --no-color"
            ;;
        push|pull)
            local opts="$common $out $s3"
            ;;
        completion)
            local opts="bash zsh"
            COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
            return 0
            ;;
        *)
            local opts="$common"
            ;;
    esac

    if [[ "$prev" == "--output" || "$prev" == "-o" ]]; then
        COMPREPLY=( $(compgen -W "text json yaml" -- "$cur") )
        return 0
    fi

    if [[ "$prev" == "--root" || "$prev" == "-r" || "$prev" == "--against" || "$prev" == "-a" ]]; then
        COMPREPLY=( $(compgen -o dirnames -- "$cur") )
        return 0
    fi

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
        return 0
    fi

    case "$cmd" in
        get|rm|diff)
            COMPREPLY=( $(compgen -W "$(_buildmemo_keys)" -- "$cur") )
            ;;
    esac
    return 0
}

complete -F _buildmemo buildmemo
`

const zshCompletionScript = `#compdef buildmemo

_buildmemo_keys() {
  local -a keys
  keys=(${(f)"$(buildmemo ls --output json --no-color 2>/dev/null | tr ',' '\n' | sed -n 's/.*"key":"\([^"]*\)".*/\1/p')"})
  _describe -t keys 'cache keys' keys
}

_buildmemo() {
  local -a cmds
  cmds=(
    'clear:delete every entry'
    'completion:generate shell completion script'
    'diff:diff an entry against another store'
    'fetch:fetch a JSON URL through the cache'
    'get:print an entry'
    'ls:list cache entries'
    'pull:download the store from S3'
    'purge:delete entries older than a number of hours'
    'push:upload the store to S3'
    'rm:delete entries'
    'show:summarize the store'
  )

  local -a common
  common=(
  '(-r --root)'{-r,--root}'[store root directory]:root:_directories'
  '--tldr[show tldr page]'
  )

  local -a out
  out=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-f --filter)'{-f,--filter}'[filters to apply]:filters'
  '(-o --output)'{-o,--output}'[output format]:format:(text json yaml)'
  '(-s --sort)'{-s,--sort}'[sort attributes]:attrs'
  '(-t --titles)'{-t,--titles}'[show titles]'
  )

  local -a s3
  s3=(
  '(-b --bucket)'{-b,--bucket}'[S3 bucket]:bucket'
  '--prefix[key prefix]:prefix'
  '--region[AWS region]:region'
  '--profile[AWS profile]:profile'
  '--endpoint[S3 endpoint]:url'
  '(-n --dry-run)'{-n,--dry-run}'[list only]'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'buildmemo commands' cmds
    return
  fi

  local curcontext="$curcontext" state line
  case $words[2] in
    ls|show)
      _arguments -C $common $out '--timeout[freshness window]:duration'
      ;;
    get)
      _arguments -C $common '(-p --path)'{-p,--path}'[gjson path]:path' '1:key:_buildmemo_keys'
      ;;
    rm)
      _arguments -C $common '*:key:_buildmemo_keys'
      ;;
    clear)
      _arguments -C $common
      ;;
    purge)
      _arguments -C $common '--hours[age in hours]:hours'
      ;;
    fetch)
      _arguments -C $common \
        '--timeout[freshness window]:duration' \
        '*'{-H,--header}'[request header]:header' \
        '--http-timeout[HTTP client timeout]:duration' \
        '--token[bearer token]:token' \
        '1:key' '2:url:_urls'
      ;;
    diff)
      _arguments -C $common \
        '(-a --against)'{-a,--against}'[store to compare against]:dir:_directories' \
        '(-c --color)'{-c,--color}'[enable colored diff]' \
        '1:key:_buildmemo_keys'
      ;;
    push|pull)
      _arguments -C $common $out $s3
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _buildmemo buildmemo
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := Writer(cmd)
	shell := ""
	if args := cmd.Args().Slice(); len(args) > 0 {
		shell = args[0]
	}
	switch shell {
	case "bash":
		fmt.Fprint(w, bashCompletionScript)
	case "zsh":
		fmt.Fprint(w, zshCompletionScript)
	default:
		// Try to detect from SHELL or print help
		sh := os.Getenv("SHELL")
		if strings.HasSuffix(sh, "zsh") {
			fmt.Fprint(w, zshCompletionScript)
		} else if strings.HasSuffix(sh, "bash") {
			fmt.Fprint(w, bashCompletionScript)
		} else {
			fmt.Fprintln(os.Stderr, "usage: buildmemo completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "buildmemo completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
