// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/staranto/kvcache/internal/meta"
)

const bashCompletionScript = `# bash completion for kvcache
# Fallback if bash-completion is not installed
if ! declare -F _get_comp_words_by_ref >/dev/null 2>&1; then
  _get_comp_words_by_ref() {
    cur=${COMP_WORDS[COMP_CWORD]}
    prev=${COMP_WORDS[COMP_CWORD-1]}
  }
fi

_kvcache()
{
    local cur prev cmd
    COMPREPLY=()
    _get_comp_words_by_ref -n : cur prev

    if [[ ${COMP_CWORD} -eq 1 ]]; then
        COMPREPLY=( $(compgen -W "set get has rm clear stats keys inspect sweep serve completion --help --version" -- "$cur") )
        return 0
    fi

    cmd=${COMP_WORDS[1]}
    local common="--color -c --output -o --tldr --dir -d --store --cleanup-interval --compress --no-compress --level -l --threshold --method -m --lzma2-limit"

    case "$cmd" in
        set)
            local opts="$common --ttl --file"
            ;;
        get)
            local opts="$common --query -q"
            ;;
        keys)
            local opts="$common --filter -f --sort -s --titles -t"
            ;;
        serve)
            local opts="$common --metrics-addr --stats-interval"
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

    case "$prev" in
        --output|-o)
            COMPREPLY=( $(compgen -W "text json raw yaml" -- "$cur") )
            return 0
            ;;
        --method|-m)
            COMPREPLY=( $(compgen -W "none zlib lzma2" -- "$cur") )
            return 0
            ;;
        --store)
            COMPREPLY=( $(compgen -W "disk memory" -- "$cur") )
            return 0
            ;;
        --dir|-d)
            COMPREPLY=( $(compgen -o dirnames -- "$cur") )
            return 0
            ;;
        --file)
            COMPREPLY=( $(compgen -f -- "$cur") )
            return 0
            ;;
    esac

    if [[ "$cur" == -* ]]; then
        COMPREPLY=( $(compgen -W "$opts" -- "$cur") )
    fi
    return 0
}

complete -F _kvcache kvcache
`

const zshCompletionScript = `#compdef kvcache

_kvcache() {
  local -a cmds
  cmds=(
    'set:store a value'
    'get:print a value'
    'has:check whether a key is live'
    'rm:remove keys'
    'clear:remove every entry'
    'stats:count total and active entries'
    'keys:list live keys'
    'inspect:show how an entry is stored'
    'sweep:remove expired entries now'
    'serve:run the janitor and export metrics'
    'completion:generate shell completion script'
  )

  local -a common
  common=(
  '(-c --color)'{-c,--color}'[enable colored text]'
  '(-o --output)'{-o,--output}'[output format]:format:(text json raw yaml)'
  '--tldr[show tldr page]'
  '(-d --dir)'{-d,--dir}'[cache directory]:dir:_directories'
  '--store[store kind]:store:(disk memory)'
  '--cleanup-interval[janitor period]:interval'
  '--compress[compress values]'
  '--no-compress[store values raw]'
  '(-l --level)'{-l,--level}'[compression level]:level:(0 1 2 3 4 5 6 7 8 9)'
  '--threshold[compression threshold]:size'
  '(-m --method)'{-m,--method}'[compression method]:method:(none zlib lzma2)'
  '--lzma2-limit[largest lzma2 value]:size'
  )

  if (( CURRENT == 2 )); then
    _describe -t commands 'kvcache commands' cmds
    return
  fi

  case $words[2] in
    set)
      _arguments -C \
        $common \
        '--ttl[time to live]:ttl' \
        '--file[read value from file]:file:_files' \
        '1:key' \
        '2::value'
      ;;
    get)
      _arguments -C \
        $common \
        '(-q --query)'{-q,--query}'[gjson path]:path' \
        '1:key'
      ;;
    has|inspect)
      _arguments -C $common '1:key'
      ;;
    rm)
      _arguments -C $common '*:key'
      ;;
    keys)
      _arguments -C \
        $common \
        '(-f --filter)'{-f,--filter}'[filters to apply]:filters' \
        '(-s --sort)'{-s,--sort}'[sort attributes]:attrs' \
        '(-t --titles)'{-t,--titles}'[show titles]'
      ;;
    serve)
      _arguments -C \
        $common \
        '--metrics-addr[metrics listen address]:addr' \
        '--stats-interval[gauge refresh period]:interval'
      ;;
    completion)
      _arguments '1: :((bash zsh))'
      ;;
    *)
      _arguments -C $common
      ;;
  esac
}

# If this file is sourced directly (not autoloaded via fpath), ensure compsys is initialized and register the completion
if ! typeset -f compdef >/dev/null 2>&1; then
  autoload -Uz compinit && compinit -i
fi
compdef _kvcache kvcache
`

func CompletionCommandAction(ctx context.Context, cmd *cli.Command) error {
	w := stdout(cmd)
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
			fmt.Fprintln(os.Stderr, "usage: kvcache completion [bash|zsh]")
			return nil
		}
	}
	return nil
}

func CompletionCommandBuilder(cmd *cli.Command, meta meta.Meta) *cli.Command {
	return &cli.Command{
		Name:      "completion",
		Usage:     "generate shell completion script",
		UsageText: "kvcache completion [bash|zsh]",
		Metadata: map[string]any{
			"meta": meta,
		},
		Action: CompletionCommandAction,
	}
}
